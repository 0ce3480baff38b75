// Package webhook ingests the provider's delivery-status callbacks,
// classifies each event into a suppression action, and correlates it back
// to the originating contact or send record.
package webhook

import (
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
)

// Event kinds the provider reports. Anything else is ignored.
const (
	EventBounce  = "bounce"
	EventBlocked = "blocked"
	EventSpam    = "spam"
	EventUnsub   = "unsub"
)

// Event is one decoded notification from the provider.
type Event struct {
	Event          string `json:"event"`
	Email          string `json:"email"`
	HardBounce     bool   `json:"hard_bounce"`
	ErrorRelatedTo string `json:"error_related_to"`
	Error          string `json:"error"`
	Source         string `json:"source"`
	CustomID       string `json:"CustomID"`
}

var errEmptyBody = errors.New("webhook: empty body")

// Normalize decodes a webhook body into a list of events. The provider
// posts either a single flat object, an array of objects, or a form-encoded
// object; a flat object with an "event" key becomes a one-element list, and
// any other non-empty object is treated as a keyed collection of events.
func Normalize(body []byte) ([]Event, error) {
	var asList []Event
	if err := json.Unmarshal(body, &asList); err == nil {
		if len(asList) == 0 {
			return nil, errEmptyBody
		}
		return asList, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return normalizeForm(body)
	}
	if len(probe) == 0 {
		return nil, errEmptyBody
	}

	if _, single := probe["event"]; single {
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		return []Event{ev}, nil
	}

	var asMap map[string]Event
	if err := json.Unmarshal(body, &asMap); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	events := make([]Event, 0, len(asMap))
	for _, k := range keys {
		events = append(events, asMap[k])
	}
	return events, nil
}

// normalizeForm decodes a form-encoded body into a one-element event list.
// Anything without an "event" field is not a callback body.
func normalizeForm(body []byte) ([]Event, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("event") == "" {
		return nil, errEmptyBody
	}
	hardBounce, _ := strconv.ParseBool(form.Get("hard_bounce"))
	return []Event{{
		Event:          form.Get("event"),
		Email:          form.Get("email"),
		HardBounce:     hardBounce,
		ErrorRelatedTo: form.Get("error_related_to"),
		Error:          form.Get("error"),
		Source:         form.Get("source"),
		CustomID:       form.Get("CustomID"),
	}}, nil
}
