package mailjet

// Address is an email address with an optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment is a file attached to an outbound message. Content carries the
// base64-encoded bytes as produced by the composing side.
type Attachment struct {
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Content     string `json:"content"`
}

// Recipient is the per-recipient metadata attached to a batch message,
// keyed by the recipient's address in Message.Metadata.
type Recipient struct {
	// Name is the recipient's display name, if known.
	Name string `json:"name,omitempty"`
	// HashID identifies the originating send record. Empty for ad-hoc
	// test sends.
	HashID string `json:"hash_id,omitempty"`
	// ContactID is the contact the send record belongs to.
	ContactID int64 `json:"contact_id,omitempty"`
	// CampaignID references the campaign whose From/Reply-To settings
	// override the envelope at send time.
	CampaignID int64 `json:"campaign_id,omitempty"`
	// Tokens maps personalization token names (as they appear in the
	// message body) to this recipient's substitution values.
	Tokens map[string]string `json:"tokens,omitempty"`
}

// Message is one email template to be sent to one or more recipients in a
// batch. When Metadata is non-empty the batch produces one provider entry
// per metadata key; otherwise the message is treated as a single test send
// addressed by the delivery envelope.
type Message struct {
	Subject  string    `json:"subject"`
	TextPart string    `json:"text_part,omitempty"`
	HTMLPart string    `json:"html_part,omitempty"`

	From    Address   `json:"from"`
	To      []Address `json:"to,omitempty"`
	Cc      []Address `json:"cc,omitempty"`
	Bcc     []Address `json:"bcc,omitempty"`
	ReplyTo []Address `json:"reply_to,omitempty"`

	// Headers are custom headers, case-sensitive. Provider-reserved names
	// are stripped before transmission.
	Headers map[string]string `json:"headers,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	// HashID is the message-level correlation hash used for test sends and
	// SMTP tracking, where no per-recipient metadata exists.
	HashID string `json:"hash_id,omitempty"`

	// Metadata holds per-recipient send data keyed by recipient address.
	Metadata map[string]Recipient `json:"metadata,omitempty"`
}

// Envelope is the resolved delivery envelope. It wins over the message's
// declared From/To for actual transmission.
type Envelope struct {
	Sender     Address   `json:"sender"`
	Recipients []Address `json:"recipients"`
}

// Campaign is the narrow view of an originating campaign the transport needs
// when resolving per-send From and Reply-To overrides.
type Campaign struct {
	FromAddress string
	FromName    string
	// ReplyTo is a comma-separated address list as stored by the host.
	ReplyTo string
}
