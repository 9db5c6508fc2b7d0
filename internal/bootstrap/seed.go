// Package bootstrap provides startup-time initialization routines
// such as seeding demo emergency contacts for local development.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/healthmate/internal/alert"
)

// ContactWriter is the subset of the contact store the seeder needs.
type ContactWriter interface {
	ListContacts(ctx context.Context, userID uuid.UUID) ([]alert.Contact, error)
	CreateContact(ctx context.Context, userID uuid.UUID, c alert.Contact) (alert.Contact, error)
}

// SeedContacts ensures userID has the given emergency contacts.
// It is idempotent: if the user already has any contact, it returns
// immediately without writing.
func SeedContacts(ctx context.Context, store ContactWriter, log zerolog.Logger, userID uuid.UUID, contacts []alert.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	existing, err := store.ListContacts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list contacts: %w", err)
	}
	if len(existing) > 0 {
		log.Info().
			Str("user_id", userID.String()).
			Int("contacts", len(existing)).
			Msg("demo contacts already present, skipping seed")
		return 0, nil
	}

	created := 0
	for _, c := range contacts {
		saved, err := store.CreateContact(ctx, userID, c)
		if err != nil {
			return created, fmt.Errorf("create contact %q: %w", c.Name, err)
		}
		created++
		log.Debug().
			Str("contact_id", saved.ID.String()).
			Str("name", saved.Name).
			Msg("demo contact created")
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("contacts", created).
		Msg("demo contacts seeded")
	return created, nil
}
