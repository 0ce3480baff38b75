package webhook

import (
	"context"
	"log"
	"net/http"

	"github.com/mhenke/mailjet-bridge/internal/mailjet"
	"github.com/mhenke/mailjet-bridge/internal/suppression"
)

// Result describes the terminal HTTP response for a processed callback.
type Result struct {
	Status int
	Body   string
}

// Processor handles one provider callback end to end: ownership check,
// body normalization, per-event classification, and suppression emission.
type Processor struct {
	// scheme is the transport scheme of the currently configured mailer.
	scheme   string
	callback suppression.Sink
}

func NewProcessor(scheme string, callback suppression.Sink) *Processor {
	return &Processor{scheme: scheme, callback: callback}
}

// Process handles a raw callback body. It returns nil when the configured
// transport scheme is not owned by this adapter, signalling the caller that
// the callback is not ours. Every classified event yields one suppression
// write; events are independent and a failing write does not stop the rest.
func (p *Processor) Process(ctx context.Context, body []byte) *Result {
	if !mailjet.OwnsScheme(p.scheme) {
		return nil
	}

	events, err := Normalize(body)
	if err != nil {
		return &Result{Status: http.StatusNotFound, Body: "There is no data to process."}
	}

	for _, ev := range events {
		instruction, ok := Classify(ev)
		if !ok {
			continue
		}
		if err := p.emit(ctx, ev, instruction); err != nil {
			log.Printf("webhook: record %s for %s: %v", instruction.Reason, ev.Email, err)
		}
	}

	return &Result{Status: http.StatusOK, Body: "Callback processed"}
}

// emit resolves the event's target. A correlation identifier is only
// trusted when the embedded fingerprint matches the event's address, which
// guards against tampered or stale identifiers; otherwise the raw address
// is used.
func (p *Processor) emit(ctx context.Context, ev Event, in Instruction) error {
	if hashID, fingerprint, ok := mailjet.SplitCustomID(ev.CustomID); ok {
		if mailjet.Fingerprint(ev.Email) == fingerprint {
			return p.callback.AddFailureByHashID(ctx, hashID, in.Comment, in.Reason)
		}
	}
	return p.callback.AddFailureByAddress(ctx, ev.Email, in.Comment, in.Reason)
}
