package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhenke/mailjet-bridge/internal/mailjet"
	"github.com/mhenke/mailjet-bridge/internal/store"
	"github.com/mhenke/mailjet-bridge/internal/webhook"
)

const defaultMaxAttempts = 3

type Handler struct {
	queries   store.Querier
	transport mailjet.Transport
	processor *webhook.Processor
}

// SendRequest is the body of POST /v1/messages and /v1/messages/test.
type SendRequest struct {
	Message  mailjet.Message  `json:"message" binding:"required"`
	Envelope mailjet.Envelope `json:"envelope" binding:"required"`
}

// SendMessage enqueues an outbound message for the worker. The payload is
// stored as-is; chunking to the provider batch limit happens at execution.
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Envelope.Sender.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "envelope sender is required"})
		return
	}
	if len(req.Message.Metadata) == 0 && len(req.Envelope.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message has no recipients"})
		return
	}

	payload, err := encodeSendJob(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode job payload"})
		return
	}

	job, err := h.queries.CreateJob(c.Request.Context(), store.CreateJobParams{
		JobType:     JobTypeSend,
		Payload:     payload,
		MaxAttempts: defaultMaxAttempts,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

// SendTestMessage sends synchronously through the configured transport,
// ignoring any per-recipient metadata so the transport takes its test-send
// path addressed by the envelope.
func (h *Handler) SendTestMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Envelope.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "envelope has no recipients"})
		return
	}

	req.Message.Metadata = nil
	if err := h.transport.Send(c.Request.Context(), &req.Message, &req.Envelope); err != nil {
		status := http.StatusBadGateway
		if isConfigurationError(err) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// GetJob returns a queued job's current state.
func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.queries.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListSuppressions returns the suppression entries recorded for an address.
func (h *Handler) ListSuppressions(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	entries, err := h.queries.ListDoNotContactByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list suppressions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "suppressions": entries})
}

// MailjetCallback handles the provider's delivery-status callbacks. When the
// configured transport scheme is not owned by this adapter the callback is
// not ours and the route answers a bare 404.
func (h *Handler) MailjetCallback(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Failed to read request body.")
		return
	}

	result := h.processor.Process(c.Request.Context(), body)
	if result == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.String(result.Status, result.Body)
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
