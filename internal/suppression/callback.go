package suppression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mhenke/mailjet-bridge/internal/store"
)

// Callback is the Postgres-backed Sink. One write per failure; idempotency
// comes from the do_not_contact upsert keyed on (contact, channel).
type Callback struct {
	queries store.Querier
	now     func() time.Time
}

func NewCallback(queries store.Querier) *Callback {
	return &Callback{queries: queries, now: time.Now}
}

var _ Sink = (*Callback)(nil)

func (c *Callback) AddFailureByHashID(ctx context.Context, hashID, comment string, reason Reason) error {
	rec, err := c.queries.GetSendRecordByHash(ctx, hashID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("suppression: no send record for hash %s", hashID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup send record %s: %w", hashID, err)
	}

	if err := c.recordFailure(ctx, rec, comment, reason); err != nil {
		return err
	}

	channel, channelID := channelFor(comment, campaignRef(rec.CampaignID))
	return c.addDNC(ctx, rec.ContactID, channel, channelID, comment, reason)
}

func (c *Callback) AddFailureByAddress(ctx context.Context, address, comment string, reason Reason) error {
	contacts, err := c.queries.ListContactsByEmail(ctx, address)
	if err != nil {
		return fmt.Errorf("lookup contacts for %s: %w", address, err)
	}

	channel, channelID := channelFor(comment, nil)
	for _, contact := range contacts {
		if err := c.addDNC(ctx, contact.ID, channel, channelID, comment, reason); err != nil {
			return err
		}
	}
	return nil
}

func (c *Callback) AddFailureByContactID(ctx context.Context, contactID int64, comment string, reason Reason, channelID *int64) error {
	channel, scopedID := channelFor(comment, channelID)
	return c.addDNC(ctx, contactID, channel, scopedID, comment, reason)
}

// recordFailure marks the send record failed on bounces and appends a
// bounce detail entry regardless of reason.
func (c *Callback) recordFailure(ctx context.Context, rec store.SendRecord, comment string, reason Reason) error {
	detail, err := json.Marshal([]map[string]string{{
		"datetime": c.now().UTC().Format(time.RFC3339),
		"reason":   comment,
	}})
	if err != nil {
		return err
	}
	return c.queries.RecordSendFailure(ctx, store.RecordSendFailureParams{
		ID:       rec.ID,
		IsFailed: reason == Bounced,
		Detail:   detail,
	})
}

func (c *Callback) addDNC(ctx context.Context, contactID int64, channel string, channelID *int64, comment string, reason Reason) error {
	_, err := c.queries.UpsertDoNotContact(ctx, store.UpsertDoNotContactParams{
		ContactID: contactID,
		Channel:   channel,
		ChannelID: channelID,
		Reason:    string(reason),
		Comments:  comment,
	})
	if err != nil {
		return fmt.Errorf("record suppression for contact %d: %w", contactID, err)
	}
	return nil
}

// channelFor scopes a suppression: soft bounces go to the provider channel
// so repeated soft failures from this provider do not suppress the contact's
// general email channel; everything else suppresses email, scoped to the
// originating campaign when known.
func channelFor(comment string, channelID *int64) (string, *int64) {
	if strings.HasPrefix(comment, "SOFT") {
		return ChannelMailjet, nil
	}
	return ChannelEmail, channelID
}

func campaignRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
