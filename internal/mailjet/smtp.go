package mailjet

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

const (
	// SchemeSMTP selects the provider's SMTP relay.
	SchemeSMTP = "mailjet+smtp"
	// SMTPHost is the provider's SMTP relay host.
	SMTPHost = "in-v3.mailjet.com"
	// SMTPDefaultPort is the provider's default submission port.
	SMTPDefaultPort = 465

	// TrackingHeader carries the correlation identifier on SMTP sends; the
	// provider copies it into webhook events as CustomID.
	TrackingHeader = "X-MJ-CUSTOMID"
)

// sendMailFunc matches smtp.SendMail; swapped in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport relays messages through the provider's SMTP endpoint,
// injecting the correlation tracking header. MIME composition is minimal;
// the relay handles delivery semantics.
type SMTPTransport struct {
	host     string
	port     int
	user     string
	password string
	sendMail sendMailFunc
}

// SMTPConfig configures an SMTPTransport. Host and Port override the
// provider defaults.
type SMTPConfig struct {
	User     string
	Password string
	Host     string
	Port     int
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	host := cfg.Host
	if host == "" {
		host = SMTPHost
	}
	port := cfg.Port
	if port == 0 {
		port = SMTPDefaultPort
	}
	return &SMTPTransport{
		host:     host,
		port:     port,
		user:     cfg.User,
		password: cfg.Password,
		sendMail: smtp.SendMail,
	}
}

func (t *SMTPTransport) Scheme() string { return SchemeSMTP }

// MaxBatchLimit is 1: the relay takes one fully-rendered message per
// submission, so per-recipient batching happens upstream.
func (t *SMTPTransport) MaxBatchLimit() int { return 1 }

// Send relays one message. A single metadata entry addresses the message to
// that recipient, with its tokens rendered to final values and its hash as
// the tracking header; without metadata the envelope recipients are used.
func (t *SMTPTransport) Send(_ context.Context, msg *Message, env *Envelope) error {
	if msg == nil {
		return &ConfigurationError{Reason: "message is nil"}
	}
	if env == nil {
		return &ConfigurationError{Reason: "envelope is nil"}
	}
	if len(msg.Metadata) > 1 {
		return &ConfigurationError{
			Reason: fmt.Sprintf("the SMTP relay takes one recipient per message, %d given", len(msg.Metadata)),
		}
	}

	var recipients []string
	var raw []byte
	if len(msg.Metadata) == 1 {
		for addr, rec := range msg.Metadata {
			recipients = []string{addr}
			raw = t.renderRecipient(msg, env, addr, rec)
		}
	} else {
		if len(env.Recipients) == 0 {
			return &ConfigurationError{Reason: "envelope has no recipients"}
		}
		recipients = make([]string, len(env.Recipients))
		for i, r := range env.Recipients {
			recipients[i] = r.Email
		}
		tracking := ""
		if msg.HashID != "" && len(msg.To) > 0 {
			tracking = CustomID(msg.HashID, msg.To[0].Email)
		}
		raw = t.render(msg, env, recipients, msg.Subject, msg.TextPart, msg.HTMLPart, tracking)
	}

	auth := smtp.PlainAuth("", t.user, t.password, t.host)
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	if err := t.sendMail(addr, auth, env.Sender.Email, recipients, raw); err != nil {
		return &TransportError{Message: "smtp relay failed", Err: err}
	}
	return nil
}

// renderRecipient composes the message for one metadata recipient. The relay
// performs no templating, so tokens are rendered to their final values here.
func (t *SMTPTransport) renderRecipient(msg *Message, env *Envelope, address string, rec Recipient) []byte {
	subject := renderTokens(msg.Subject, rec.Tokens)
	textPart := renderTokens(msg.TextPart, rec.Tokens)
	htmlPart := renderTokens(msg.HTMLPart, rec.Tokens)

	tracking := ""
	if rec.HashID != "" {
		tracking = CustomID(rec.HashID, address)
	}
	return t.render(msg, env, []string{address}, subject, textPart, htmlPart, tracking)
}

// render composes the raw message: addressing, custom headers, and the
// correlation tracking header when set.
func (t *SMTPTransport) render(msg *Message, env *Envelope, to []string, subject, textPart, htmlPart, tracking string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", formatHeaderAddress(env.Sender))
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)

	contentType := "text/plain"
	body := textPart
	if htmlPart != "" {
		contentType = "text/html"
		body = htmlPart
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=UTF-8\r\n", contentType)

	for _, name := range sortedHeaderNames(msg.Headers) {
		if name == TrackingHeader {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, msg.Headers[name])
	}

	if tracking != "" {
		fmt.Fprintf(&b, "%s: %s\r\n", TrackingHeader, tracking)
	}

	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// renderTokens substitutes each raw token occurrence with its final value.
func renderTokens(s string, tokens map[string]string) string {
	for token, value := range tokens {
		s = strings.ReplaceAll(s, token, value)
	}
	return s
}

func formatHeaderAddress(a Address) string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

func sortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
