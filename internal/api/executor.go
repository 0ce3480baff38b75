package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mhenke/mailjet-bridge/internal/mailjet"
	"github.com/mhenke/mailjet-bridge/internal/queue"
)

// JobTypeSend is the job type for outbound message sends.
const JobTypeSend = "email.send"

// sendJobPayload is the serialized form of an email send job.
type sendJobPayload struct {
	Message  mailjet.Message  `json:"message"`
	Envelope mailjet.Envelope `json:"envelope"`
}

func encodeSendJob(req SendRequest) ([]byte, error) {
	return json.Marshal(sendJobPayload{Message: req.Message, Envelope: req.Envelope})
}

// ExecuteJob dispatches a job to the appropriate handler by type.
// It implements worker.JobExecutor.
func (h *Handler) ExecuteJob(ctx context.Context, jobID uuid.UUID, jobType string, payload json.RawMessage) error {
	switch jobType {
	case JobTypeSend:
		return h.executeSendJob(ctx, payload)
	default:
		return &mailjet.ConfigurationError{Reason: fmt.Sprintf("unknown job type %q", jobType)}
	}
}

// executeSendJob chunks the message's recipient metadata to the transport's
// batch limit and sends one batch per chunk. Build-time errors abort the
// whole job; a transport error aborts at the failing chunk so the retry
// resubmits from a consistent state.
func (h *Handler) executeSendJob(ctx context.Context, raw json.RawMessage) error {
	var p sendJobPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return &mailjet.ConfigurationError{Reason: "invalid send job payload: " + err.Error()}
	}

	if len(p.Message.Metadata) == 0 {
		return h.transport.Send(ctx, &p.Message, &p.Envelope)
	}

	chunks := queue.ChunkRecipients(p.Message.Metadata, h.transport.MaxBatchLimit())
	for _, chunk := range chunks {
		msg := p.Message
		msg.Metadata = chunk
		if err := h.transport.Send(ctx, &msg, &p.Envelope); err != nil {
			return err
		}
	}
	return nil
}

func isConfigurationError(err error) bool {
	var cfgErr *mailjet.ConfigurationError
	return errors.As(err, &cfgErr)
}
