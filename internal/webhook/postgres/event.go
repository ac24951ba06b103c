package postgres

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ProcessedEvent is one row of the webhook dedup log. The primary key on
// the provider event id makes the insert the idempotency check.
type ProcessedEvent struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProcessedEvent) TableName() string {
	return "webhook_events"
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertProcessedEvent returns false when the event id was already
// recorded. Any other failure is returned as-is.
func (r *EventRepository) InsertProcessedEvent(eventID, eventType string) (bool, error) {
	row := &ProcessedEvent{EventID: eventID, EventType: eventType}
	err := r.db.Create(row).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return false, nil
	}
	return false, err
}

// DeleteProcessedEvent releases an event id claimed by an attempt that
// failed before the ledger was updated.
func (r *EventRepository) DeleteProcessedEvent(eventID string) error {
	return r.db.Where("event_id = ?", eventID).Delete(&ProcessedEvent{}).Error
}

func (r *EventRepository) PurgeProcessedBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&ProcessedEvent{})
	return res.RowsAffected, res.Error
}
