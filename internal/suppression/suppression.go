// Package suppression records that a contact should no longer receive mail
// on a channel, and why. Transports and the webhook processor emit failures
// through the Sink interface; Callback is the Postgres-backed implementation.
package suppression

import "context"

// Reason enumerates why a contact was suppressed.
type Reason string

const (
	Bounced      Reason = "bounced"
	Unsubscribed Reason = "unsubscribed"
)

// Channel names a delivery channel a suppression applies to. Soft bounces
// are scoped to the provider channel so they do not immediately suppress the
// contact's general email channel.
const (
	ChannelEmail   = "email"
	ChannelMailjet = "mailjet"
)

// Sink records delivery failures against contacts. Implementations must be
// idempotent per (contact, channel): the provider redelivers webhook events
// at least once.
type Sink interface {
	// AddFailureByHashID records a failure against the contact owning the
	// send record identified by hashID. Unknown hashes are ignored.
	AddFailureByHashID(ctx context.Context, hashID, comment string, reason Reason) error

	// AddFailureByAddress records a failure against every contact holding
	// the given address.
	AddFailureByAddress(ctx context.Context, address, comment string, reason Reason) error

	// AddFailureByContactID records a failure against a known contact.
	// channelID, when non-nil, scopes the suppression to the originating
	// campaign.
	AddFailureByContactID(ctx context.Context, contactID int64, comment string, reason Reason, channelID *int64) error
}
