package webhook

import (
	"strings"

	"github.com/mhenke/mailjet-bridge/internal/suppression"
)

// Instruction is the suppression action classified from one event.
type Instruction struct {
	Reason  suppression.Reason
	Comment string
}

// Classify maps an event to its suppression instruction. ok is false for
// event kinds this adapter does not act on.
func Classify(ev Event) (Instruction, bool) {
	switch ev.Event {
	case EventBounce:
		kind := "SOFT"
		if ev.HardBounce {
			kind = "HARD"
		}
		return Instruction{
			Reason:  suppression.Bounced,
			Comment: joinNonEmpty(kind, ev.ErrorRelatedTo, ev.Error),
		}, true
	case EventBlocked:
		return Instruction{
			Reason:  suppression.Bounced,
			Comment: joinNonEmpty("BLOCKED", ev.ErrorRelatedTo, ev.Error),
		}, true
	case EventSpam:
		return Instruction{
			Reason:  suppression.Unsubscribed,
			Comment: "User reported email as spam, source: " + ev.Source,
		}, true
	case EventUnsub:
		return Instruction{
			Reason:  suppression.Unsubscribed,
			Comment: "User unsubscribed",
		}, true
	default:
		return Instruction{}, false
	}
}

// joinNonEmpty joins the non-empty parts with ": ".
func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ": ")
}
