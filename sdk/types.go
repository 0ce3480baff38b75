package mailbridge

import "time"

// Address is an email address with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment is a base64-encoded file attached to a message.
type Attachment struct {
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Content     string `json:"content"`
}

// Recipient is per-recipient send metadata, keyed by address in
// Message.Metadata.
type Recipient struct {
	Name       string            `json:"name,omitempty"`
	HashID     string            `json:"hash_id,omitempty"`
	ContactID  int64             `json:"contact_id,omitempty"`
	CampaignID int64             `json:"campaign_id,omitempty"`
	Tokens     map[string]string `json:"tokens,omitempty"`
}

// Message mirrors the bridge's outbound message model.
type Message struct {
	Subject     string               `json:"subject"`
	TextPart    string               `json:"text_part,omitempty"`
	HTMLPart    string               `json:"html_part,omitempty"`
	From        Address              `json:"from"`
	To          []Address            `json:"to,omitempty"`
	Cc          []Address            `json:"cc,omitempty"`
	Bcc         []Address            `json:"bcc,omitempty"`
	ReplyTo     []Address            `json:"reply_to,omitempty"`
	Headers     map[string]string    `json:"headers,omitempty"`
	Attachments []Attachment         `json:"attachments,omitempty"`
	HashID      string               `json:"hash_id,omitempty"`
	Metadata    map[string]Recipient `json:"metadata,omitempty"`
}

// Envelope is the resolved delivery envelope.
type Envelope struct {
	Sender     Address   `json:"sender"`
	Recipients []Address `json:"recipients"`
}

// SendRequest is the body of the send endpoints.
type SendRequest struct {
	Message  Message  `json:"message"`
	Envelope Envelope `json:"envelope"`
}

// JobRef is returned when a send is queued.
type JobRef struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Job is the state of a queued send.
type Job struct {
	ID          string     `json:"id"`
	JobType     string     `json:"job_type"`
	Status      string     `json:"status"`
	Attempt     int32      `json:"attempt"`
	MaxAttempts int32      `json:"max_attempts"`
	RunAt       time.Time  `json:"run_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Suppression is one recorded do-not-contact entry.
type Suppression struct {
	ID        int64     `json:"id"`
	ContactID int64     `json:"contact_id"`
	Channel   string    `json:"channel"`
	ChannelID *int64    `json:"channel_id,omitempty"`
	Reason    string    `json:"reason"`
	Comments  string    `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// SuppressionList is the response of the suppressions endpoint.
type SuppressionList struct {
	Email        string        `json:"email"`
	Suppressions []Suppression `json:"suppressions"`
}

// StatusResponse is a generic {"status": "..."} response body.
type StatusResponse struct {
	Status string `json:"status"`
}
