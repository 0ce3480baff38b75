package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mhenke/mailjet-bridge/internal/mailjet"
	"github.com/mhenke/mailjet-bridge/internal/store"
	"github.com/mhenke/mailjet-bridge/internal/webhook"
)

// RegisterRoutes wires all routes onto r and returns the handler so the
// caller can hand it to the worker as its job executor.
func RegisterRoutes(r *gin.Engine, queries store.Querier, transport mailjet.Transport, processor *webhook.Processor) *Handler {
	h := &Handler{
		queries:   queries,
		transport: transport,
		processor: processor,
	}

	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	{
		v1.POST("/messages", h.SendMessage)
		v1.POST("/messages/test", h.SendTestMessage)
		v1.GET("/jobs/:id", h.GetJob)
		v1.GET("/suppressions", h.ListSuppressions)
	}

	// Called by the provider — no auth beyond the unguessable route; events
	// carrying a correlation id are fingerprint-checked before being trusted.
	r.POST("/callbacks/mailjet", h.MailjetCallback)

	return h
}
