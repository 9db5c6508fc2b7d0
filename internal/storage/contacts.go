package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sungwon/healthmate/internal/alert"
	"github.com/sungwon/healthmate/internal/metrics"
)

// ContactStore reads and writes emergency contacts. It implements
// alert.ContactStore.
type ContactStore struct {
	db *DB
}

// NewContactStore creates a ContactStore backed by db.
func NewContactStore(db *DB) *ContactStore {
	return &ContactStore{db: db}
}

type contactRow struct {
	ID           uuid.UUID          `db:"id"`
	Name         string             `db:"name"`
	Email        string             `db:"email"`
	Phone        pgtype.Text        `db:"phone"`
	Relationship pgtype.Text        `db:"relationship"`
	CreatedAt    pgtype.Timestamptz `db:"created_at"`
}

func (r contactRow) toContact() alert.Contact {
	return alert.Contact{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone.String,
		Relationship: r.Relationship.String,
		CreatedAt:    r.CreatedAt.Time,
	}
}

const listContactsSQL = `
SELECT id, name, email, phone, relationship, created_at
FROM emergency_contacts
WHERE user_id = $1
ORDER BY created_at, id`

// ListContacts returns the user's contacts, oldest first.
func (s *ContactStore) ListContacts(ctx context.Context, userID uuid.UUID) ([]alert.Contact, error) {
	defer observe("list_contacts", time.Now())

	rows, err := s.db.Pool.Query(ctx, listContactsSQL, userID)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_contacts").Inc()
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[contactRow])
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("list_contacts").Inc()
		return nil, fmt.Errorf("scan contacts: %w", err)
	}

	contacts := make([]alert.Contact, len(found))
	for i, r := range found {
		contacts[i] = r.toContact()
	}
	return contacts, nil
}

const createContactSQL = `
INSERT INTO emergency_contacts (user_id, name, email, phone, relationship)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, email, phone, relationship, created_at`

// CreateContact inserts a contact for userID and returns it with its
// generated ID and creation time.
func (s *ContactStore) CreateContact(ctx context.Context, userID uuid.UUID, c alert.Contact) (alert.Contact, error) {
	defer observe("create_contact", time.Now())

	rows, err := s.db.Pool.Query(ctx, createContactSQL,
		userID, c.Name, strings.TrimSpace(c.Email), optionalText(c.Phone), optionalText(c.Relationship))
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("create_contact").Inc()
		return alert.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[contactRow])
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("create_contact").Inc()
		return alert.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return row.toContact(), nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

func observe(query string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
