package mailjet

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// forbiddenHeaders are provider-reserved header names stripped from custom
// headers before transmission. Matching is case-sensitive, as received.
var forbiddenHeaders = map[string]struct{}{
	"Date": {}, "X-CSA-Complaints": {}, "Message-Id": {}, "X-MJ-StatisticsContactsListID": {},
	"DomainKey-Status": {}, "Received-SPF": {}, "Authentication-Results": {}, "Received": {},
	"From": {}, "Sender": {}, "Subject": {}, "To": {}, "Cc": {}, "Bcc": {}, "Reply-To": {},
	"Return-Path": {}, "Delivered-To": {}, "DKIM-Signature": {},
	"X-Feedback-Id": {}, "X-Mailjet-Segmentation": {}, "List-Id": {}, "X-MJ-MID": {},
	"X-MJ-ErrorMessage": {}, "X-Mailjet-Debug": {}, "User-Agent": {}, "X-Mailer": {},
	"X-MJ-WorkflowID": {},
}

// PayloadAddress is an address entry in the provider's batch schema.
type PayloadAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

// PayloadAttachment is an attachment entry in the provider's batch schema.
type PayloadAttachment struct {
	ContentType   string `json:"ContentType"`
	Filename      string `json:"Filename"`
	Base64Content string `json:"Base64Content"`
}

// MessageEntry is one message of the provider's batch-send payload.
type MessageEntry struct {
	From             PayloadAddress      `json:"From"`
	To               []PayloadAddress    `json:"To"`
	Cc               []PayloadAddress    `json:"Cc,omitempty"`
	Bcc              []PayloadAddress    `json:"Bcc,omitempty"`
	ReplyTo          *PayloadAddress     `json:"ReplyTo,omitempty"`
	Subject          string              `json:"Subject"`
	TextPart         string              `json:"TextPart,omitempty"`
	HTMLPart         string              `json:"HTMLPart,omitempty"`
	TemplateLanguage bool                `json:"TemplateLanguage"`
	Variables        map[string]string   `json:"Variables,omitempty"`
	Headers          map[string]string   `json:"Headers,omitempty"`
	Attachments      []PayloadAttachment `json:"Attachments,omitempty"`
	CustomID         string              `json:"CustomID,omitempty"`
}

// Payload is the wire payload for the provider's batch-send endpoint.
type Payload struct {
	Messages    []MessageEntry `json:"Messages"`
	SandBoxMode bool           `json:"SandBoxMode"`
}

// CampaignResolver resolves a campaign id from recipient metadata to the
// campaign's From/Reply-To overrides. A nil resolver disables overrides.
type CampaignResolver interface {
	Campaign(ctx context.Context, id int64) (*Campaign, error)
}

// PayloadBuilder turns an outbound message plus delivery envelope into the
// provider's batch payload. It performs no network I/O.
type PayloadBuilder struct {
	Sandbox   bool
	Campaigns CampaignResolver
}

// Build produces the batch payload for msg. With non-empty metadata it emits
// one entry per recipient; otherwise a single test-send entry addressed by
// the envelope.
func (b *PayloadBuilder) Build(ctx context.Context, msg *Message, env *Envelope) (*Payload, error) {
	if msg == nil {
		return nil, &ConfigurationError{Reason: "message is nil"}
	}
	if env == nil {
		return nil, &ConfigurationError{Reason: "envelope is nil"}
	}

	if len(msg.Metadata) > 0 {
		return b.buildFromMetadata(ctx, msg, env)
	}
	return b.buildTestSend(msg, env)
}

func (b *PayloadBuilder) buildFromMetadata(ctx context.Context, msg *Message, env *Envelope) (*Payload, error) {
	campaign, err := b.resolveCampaign(ctx, msg)
	if err != nil {
		return nil, err
	}

	from := resolveFrom(campaign, env)
	replyTo, err := resolveReplyTo(campaign, msg)
	if err != nil {
		return nil, err
	}

	headers := prepareHeaders(msg.Headers)
	attachments := prepareAttachments(msg.Attachments)

	// Map iteration order is random; sort addresses so payloads are
	// deterministic and the first-entry semantics of response processing
	// are stable.
	addresses := make([]string, 0, len(msg.Metadata))
	for addr := range msg.Metadata {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	entries := make([]MessageEntry, 0, len(addresses))
	for _, addr := range addresses {
		rec := msg.Metadata[addr]

		subject, textPart, htmlPart, variables := substituteTokens(msg, rec.Tokens)

		entry := MessageEntry{
			From:             from,
			To:               []PayloadAddress{{Email: addr, Name: rec.Name}},
			Subject:          subject,
			TextPart:         textPart,
			HTMLPart:         htmlPart,
			TemplateLanguage: true,
			Variables:        variables,
			Headers:          headers,
			Attachments:      attachments,
		}
		if len(msg.Cc) > 0 {
			entry.Cc = formatAddresses(msg.Cc)
		}
		if len(msg.Bcc) > 0 {
			entry.Bcc = formatAddresses(msg.Bcc)
		}
		if replyTo != nil {
			entry.ReplyTo = replyTo
		}
		if rec.HashID != "" {
			entry.CustomID = CustomID(rec.HashID, addr)
		}
		entries = append(entries, entry)
	}

	return &Payload{Messages: entries, SandBoxMode: b.Sandbox}, nil
}

func (b *PayloadBuilder) buildTestSend(msg *Message, env *Envelope) (*Payload, error) {
	entry := MessageEntry{
		From:             PayloadAddress{Email: env.Sender.Email, Name: env.Sender.Name},
		To:               formatAddresses(env.Recipients),
		Subject:          msg.Subject,
		TextPart:         msg.TextPart,
		HTMLPart:         msg.HTMLPart,
		TemplateLanguage: true,
		Headers:          prepareHeaders(msg.Headers),
	}

	if len(msg.ReplyTo) > 1 {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("the provider's API only supports one Reply-To address, %d given", len(msg.ReplyTo)),
		}
	}
	if len(msg.ReplyTo) == 1 {
		entry.ReplyTo = &PayloadAddress{Email: msg.ReplyTo[0].Email, Name: msg.ReplyTo[0].Name}
	}

	if msg.HashID != "" && len(msg.To) > 0 {
		entry.CustomID = CustomID(msg.HashID, msg.To[0].Email)
	}

	return &Payload{Messages: []MessageEntry{entry}, SandBoxMode: b.Sandbox}, nil
}

// resolveCampaign loads the campaign referenced by the batch's first
// metadata entry, if any. All entries of one batch share a campaign.
func (b *PayloadBuilder) resolveCampaign(ctx context.Context, msg *Message) (*Campaign, error) {
	if b.Campaigns == nil {
		return nil, nil
	}
	for _, addr := range sortedKeys(msg.Metadata) {
		rec := msg.Metadata[addr]
		if rec.CampaignID == 0 {
			return nil, nil
		}
		campaign, err := b.Campaigns.Campaign(ctx, rec.CampaignID)
		if err != nil {
			return nil, fmt.Errorf("resolve campaign %d: %w", rec.CampaignID, err)
		}
		return campaign, nil
	}
	return nil, nil
}

// resolveFrom prefers the campaign's From settings, falling back per field
// to the envelope sender.
func resolveFrom(campaign *Campaign, env *Envelope) PayloadAddress {
	from := PayloadAddress{Email: env.Sender.Email, Name: env.Sender.Name}
	if campaign == nil {
		return from
	}
	if campaign.FromAddress != "" {
		from.Email = campaign.FromAddress
	}
	if campaign.FromName != "" {
		from.Name = campaign.FromName
	}
	return from
}

// resolveReplyTo prefers the campaign's comma-separated Reply-To list over
// the message's own. More than one resulting address is a hard error: the
// provider accepts at most one.
func resolveReplyTo(campaign *Campaign, msg *Message) (*PayloadAddress, error) {
	var addresses []PayloadAddress
	if campaign != nil && campaign.ReplyTo != "" {
		for _, part := range strings.Split(campaign.ReplyTo, ",") {
			if part = strings.TrimSpace(part); part != "" {
				addresses = append(addresses, PayloadAddress{Email: part})
			}
		}
	} else {
		addresses = formatAddresses(msg.ReplyTo)
	}

	if len(addresses) > 1 {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("the provider's API only supports one Reply-To address, %d given", len(addresses)),
		}
	}
	if len(addresses) == 1 {
		return &addresses[0], nil
	}
	return nil, nil
}

var tokenNamePattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// NormalizeToken turns a personalization token name into the provider's
// variable name: non-alphanumerics stripped, upper-cased. Deterministic and
// idempotent.
func NormalizeToken(token string) string {
	return strings.ToUpper(tokenNamePattern.ReplaceAllString(token, ""))
}

// substituteTokens rewrites each raw token occurrence in subject, text and
// HTML parts into the provider's {{var:NAME}} templating syntax and returns
// this recipient's variable map. The provider re-resolves variables at send
// time, so no final values are rendered into the body here.
func substituteTokens(msg *Message, tokens map[string]string) (subject, textPart, htmlPart string, variables map[string]string) {
	subject, textPart, htmlPart = msg.Subject, msg.TextPart, msg.HTMLPart
	if len(tokens) == 0 {
		return subject, textPart, htmlPart, nil
	}

	variables = make(map[string]string, len(tokens))
	for token, value := range tokens {
		name := NormalizeToken(token)
		variables[name] = value

		providerToken := "{{var:" + name + "}}"
		subject = strings.ReplaceAll(subject, token, providerToken)
		textPart = strings.ReplaceAll(textPart, token, providerToken)
		htmlPart = strings.ReplaceAll(htmlPart, token, providerToken)
	}
	return subject, textPart, htmlPart, variables
}

func prepareHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if _, reserved := forbiddenHeaders[name]; reserved {
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func prepareAttachments(attachments []Attachment) []PayloadAttachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]PayloadAttachment, len(attachments))
	for i, a := range attachments {
		out[i] = PayloadAttachment{
			ContentType:   a.ContentType,
			Filename:      a.Filename,
			Base64Content: a.Content,
		}
	}
	return out
}

func formatAddresses(addresses []Address) []PayloadAddress {
	if len(addresses) == 0 {
		return nil
	}
	out := make([]PayloadAddress, len(addresses))
	for i, a := range addresses {
		out[i] = PayloadAddress{Email: a.Email, Name: a.Name}
	}
	return out
}

func sortedKeys(m map[string]Recipient) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
