package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Contact is a mail recipient known to the host application.
type Contact struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Campaign is a marketing email definition. FromAddress/FromName/ReplyTo
// override the delivery envelope for sends belonging to the campaign;
// ReplyTo is stored as a comma-separated list.
type Campaign struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
}

// SendRecord tracks one message sent to one contact. HashID is the opaque
// correlation hash embedded in the outbound message and echoed back by the
// provider. BounceDetails accumulates {datetime, reason} entries as JSON.
type SendRecord struct {
	ID            int64     `json:"id"`
	HashID        string    `json:"hash_id"`
	CampaignID    int64     `json:"campaign_id"`
	ContactID     int64     `json:"contact_id"`
	IsFailed      bool      `json:"is_failed"`
	BounceDetails []byte    `json:"bounce_details"`
	CreatedAt     time.Time `json:"created_at"`
}

// DoNotContact is one suppression entry: a contact removed from a channel.
type DoNotContact struct {
	ID        int64     `json:"id"`
	ContactID int64     `json:"contact_id"`
	Channel   string    `json:"channel"`
	ChannelID *int64    `json:"channel_id,omitempty"`
	Reason    string    `json:"reason"`
	Comments  string    `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is one queued unit of work processed by the worker.
type Job struct {
	ID          uuid.UUID   `json:"id"`
	JobType     string      `json:"job_type"`
	Payload     []byte      `json:"payload"`
	Status      string      `json:"status"`
	Attempt     int32       `json:"attempt"`
	MaxAttempts int32       `json:"max_attempts"`
	RunAt       time.Time   `json:"run_at"`
	Error       pgtype.Text `json:"error"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
