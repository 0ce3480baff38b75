package mailjet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/mhenke/mailjet-bridge/internal/suppression"
)

const (
	// SchemeAPI selects the provider's HTTP batch-send API.
	SchemeAPI = "mailjet+api"
	// APIHost is the provider's API endpoint host.
	APIHost = "api.mailjet.com"
	// APIVersion is the batch-send API version.
	APIVersion = "3.1"

	// apiMaxBatchLimit is the provider's maximum number of message entries
	// per batch-send call.
	apiMaxBatchLimit = 50
)

// Transport sends one outbound batch through the provider.
type Transport interface {
	Send(ctx context.Context, msg *Message, env *Envelope) error
	// MaxBatchLimit is the provider's cap on message entries per call.
	// Callers must pre-chunk recipient metadata to respect it.
	MaxBatchLimit() int
	Scheme() string
}

// APITransport sends batches through the provider's HTTP API and routes
// per-recipient delivery failures from the response to the suppression sink.
type APITransport struct {
	user     string
	password string
	endpoint string
	builder  *PayloadBuilder
	callback suppression.Sink
	client   *http.Client
}

// APIConfig configures an APITransport. Host and Port override the provider
// default endpoint; Client overrides http.DefaultClient.
type APIConfig struct {
	User     string
	Password string
	Sandbox  bool
	Host     string
	Port     int
	Client   *http.Client
}

func NewAPITransport(cfg APIConfig, campaigns CampaignResolver, callback suppression.Sink) *APITransport {
	host := cfg.Host
	if host == "" {
		host = APIHost
	}
	endpoint := host
	if cfg.Port != 0 {
		endpoint = fmt.Sprintf("%s:%d", host, cfg.Port)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &APITransport{
		user:     cfg.User,
		password: cfg.Password,
		endpoint: endpoint,
		builder:  &PayloadBuilder{Sandbox: cfg.Sandbox, Campaigns: campaigns},
		callback: callback,
		client:   client,
	}
}

func (t *APITransport) Scheme() string     { return SchemeAPI }
func (t *APITransport) MaxBatchLimit() int { return apiMaxBatchLimit }

// Send builds the batch payload, posts it, and interprets the response.
// A build failure aborts the attempt before anything is transmitted.
func (t *APITransport) Send(ctx context.Context, msg *Message, env *Envelope) error {
	payload, err := t.builder.Build(ctx, msg, env)
	if err != nil {
		return err
	}

	statusCode, body, err := t.post(ctx, payload)
	if err != nil {
		return &TransportError{Message: "send request failed", Err: err}
	}

	return t.processResponse(ctx, statusCode, body, msg, payload)
}

func (t *APITransport) post(ctx context.Context, payload *Payload) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("https://%s/v%s/send", t.endpoint, APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(t.user, t.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// apiError is one error object of the provider's send response.
type apiError struct {
	ErrorMessage   string   `json:"ErrorMessage"`
	StatusCode     int      `json:"StatusCode"`
	ErrorRelatedTo []string `json:"ErrorRelatedTo"`
}

type sendResponse struct {
	Messages []struct {
		Status string     `json:"Status"`
		Errors []apiError `json:"Errors"`
	} `json:"Messages"`
}

// processResponse interprets the provider response. HTTP 200 means success.
// Anything else is formatted into an operator-readable error string, the
// failure is recorded against the batch's first recipient when its metadata
// resolves to a contact, and a TransportError always surfaces to the caller.
func (t *APITransport) processResponse(ctx context.Context, statusCode int, body []byte, msg *Message, sent *Payload) error {
	if statusCode == http.StatusOK {
		return nil
	}

	errorMessage := "Unable to send an email: " + formatResponseErrors(body)
	log.Printf("mailjet: %s", errorMessage)

	// The provider reports batch-level errors without per-entry
	// attribution, so only the first recipient of the attempted batch is
	// resolvable here.
	if addr := firstRecipient(sent); addr != "" && t.callback != nil {
		if rec, ok := msg.Metadata[addr]; ok && rec.ContactID != 0 {
			var channelID *int64
			if rec.CampaignID != 0 {
				id := rec.CampaignID
				channelID = &id
			}
			if err := t.callback.AddFailureByContactID(ctx, rec.ContactID, errorMessage, suppression.Bounced, channelID); err != nil {
				log.Printf("mailjet: record send failure for contact %d: %v", rec.ContactID, err)
			}
		}
	}

	return &TransportError{StatusCode: statusCode, Message: errorMessage}
}

// formatResponseErrors extracts the error list from Messages[0].Errors,
// falling back to the whole body as a single error object.
func formatResponseErrors(body []byte) string {
	var parsed sendResponse
	var errs []apiError
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Messages) > 0 && len(parsed.Messages[0].Errors) > 0 {
		errs = parsed.Messages[0].Errors
	} else {
		var single apiError
		if err := json.Unmarshal(body, &single); err != nil || (single.ErrorMessage == "" && single.StatusCode == 0) {
			single = apiError{ErrorMessage: string(body)}
		}
		errs = []apiError{single}
	}

	var b strings.Builder
	for _, e := range errs {
		prefix := ""
		if len(e.ErrorRelatedTo) > 0 {
			prefix = "Related to properties {" + strings.Join(e.ErrorRelatedTo, ", ") + "}:"
		}
		fmt.Fprintf(&b, "%q\n", fmt.Sprintf("%s%s (code %d)", prefix, e.ErrorMessage, e.StatusCode))
	}
	return b.String()
}

func firstRecipient(p *Payload) string {
	if p == nil || len(p.Messages) == 0 || len(p.Messages[0].To) == 0 {
		return ""
	}
	return p.Messages[0].To[0].Email
}
