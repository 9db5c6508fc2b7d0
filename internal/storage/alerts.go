package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sungwon/healthmate/internal/alert"
	"github.com/sungwon/healthmate/internal/metrics"
)

// AlertLog persists alert summaries. It implements alert.Recorder.
type AlertLog struct {
	db *DB
}

// NewAlertLog creates an AlertLog backed by db.
func NewAlertLog(db *DB) *AlertLog {
	return &AlertLog{db: db}
}

const recordAlertSQL = `
INSERT INTO emergency_alerts (id, user_id, message, location, total_contacts, success_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// RecordAlert inserts one alert summary row.
func (l *AlertLog) RecordAlert(ctx context.Context, rec alert.Record) error {
	defer observe("record_alert", time.Now())

	_, err := l.db.Pool.Exec(ctx, recordAlertSQL,
		rec.ID, rec.UserID, optionalText(rec.Message), optionalText(rec.Location),
		rec.TotalContacts, rec.SuccessCount, rec.CreatedAt)
	if err != nil {
		metrics.DBErrorsTotal.WithLabelValues("record_alert").Inc()
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}
