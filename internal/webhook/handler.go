// internal/webhook/handler.go
package webhook

import (
	"context"
	"io"
	"net/http"
	"time"

	"restock-dispatcher/internal/common/errors"
	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/common/metrics"
	"restock-dispatcher/internal/common/observability"
	"restock-dispatcher/internal/fanout"
	"restock-dispatcher/internal/models"
)

// maxBodySize bounds webhook payload reads; inventory bodies are tiny.
const maxBodySize = 1 << 20

// ProductResolver fills in the event's product id and access token, or
// leaves them empty when resolution degrades.
type ProductResolver interface {
	Resolve(ctx context.Context, event *models.RestockEvent) bool
}

// ContentBuilder renders the per-event notification content.
type ContentBuilder interface {
	PrepareContent(ctx context.Context, event *models.RestockEvent) *models.EmailContent
}

// DispatchEngine fans out one event to all matched subscribers.
type DispatchEngine interface {
	Dispatch(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *fanout.Result
}

// Handler runs the webhook pipeline: verify -> normalize -> resolve ->
// fan-out, with fallback on the degraded paths.
type Handler struct {
	config   *Config
	verifier *Verifier
	resolver ProductResolver
	content  ContentBuilder
	engine   DispatchEngine
	respond  *errors.HTTPHandler
	obs      *observability.Observability
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	resolver ProductResolver,
	content ContentBuilder,
	engine DispatchEngine,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	l := log.WithFields(map[string]interface{}{"component": "inventory-webhook"})
	return &Handler{
		config:   config,
		verifier: NewVerifier(config.Secret),
		resolver: resolver,
		content:  content,
		engine:   engine,
		respond:  errors.NewHTTPHandler(l),
		obs:      obs,
		logger:   l,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	outcome := h.handle(w, r)
	elapsed := time.Since(start)

	metrics.WebhookEventsReceived.WithLabelValues(outcome).Inc()
	metrics.PipelineDuration.Observe(elapsed.Seconds())
	h.obs.RecordEventProcessed(r.Context(), outcome)
	h.obs.RecordEventDuration(r.Context(), elapsed, outcome)
}

// handle runs the pipeline and returns the terminal outcome label.
func (h *Handler) handle(w http.ResponseWriter, r *http.Request) string {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.respond.Respond(w, errors.NewMalformedPayloadError(err))
		return "malformed"
	}

	// Hard gate: the raw bytes must authenticate before anything is parsed
	// or any store is touched.
	signature := r.Header.Get(h.config.SignatureHeader)
	if !h.verifier.Verify(rawBody, signature) {
		metrics.WebhookSignatureRejections.Inc()
		h.logger.Warn("webhook signature mismatch", map[string]interface{}{
			"signaturePresent": signature != "",
			"remoteAddr":       r.RemoteAddr,
		})
		h.respond.Respond(w, errors.NewAuthenticationFailedError("signature header does not match body HMAC"))
		return "rejected"
	}

	sourceDomain := r.Header.Get(h.config.DomainHeader)
	event, err := ParseRestockEvent(rawBody, sourceDomain)
	if err != nil {
		h.respond.Respond(w, err)
		return "malformed"
	}

	log := h.logger.WithFields(map[string]interface{}{
		"inventoryItemId": event.InventoryItemID,
		"available":       event.Available,
		"sourceDomain":    event.SourceDomain,
	})

	if event.Available == 0 {
		log.Debug("ignoring zero-availability event", nil)
		h.ok(w)
		return "ignored"
	}

	log.Info("restock event verified", nil)

	ctx := r.Context()
	h.resolver.Resolve(ctx, event)

	content := h.content.PrepareContent(ctx, event)
	result := h.engine.Dispatch(ctx, event, content)

	log.Info("restock event processed", map[string]interface{}{
		"productId": event.ProductID,
		"matched":   result.Matched,
		"sent":      result.Sent,
		"failed":    result.Failed,
		"deleted":   result.Deleted,
		"fallback":  result.FallbackReason,
	})

	h.ok(w)
	if result.FallbackReason != "" {
		return "fallback_" + result.FallbackReason
	}
	return "dispatched"
}

func (h *Handler) ok(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
