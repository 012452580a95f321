// internal/fanout/engine.go
package fanout

import (
	"context"
	"sync"
	"time"

	"restock-dispatcher/internal/audit"
	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/common/metrics"
	"restock-dispatcher/internal/models"
)

// Fallback reasons, surfaced in Result and metrics.
const (
	ReasonUnresolved    = "unresolved"
	ReasonNoSubscribers = "no_subscribers"
)

// Sender delivers one rendered notification to one subscriber.
type Sender interface {
	Send(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error
}

// FallbackNotifier raises the operator-facing alert on degraded paths.
type FallbackNotifier interface {
	Notify(ctx context.Context, event *models.RestockEvent, reason string)
}

// Result is the settled outcome of one fan-out round.
type Result struct {
	Matched        int
	Sent           int
	Failed         int
	Deleted        int64
	FallbackReason string
}

// Engine fans one restock event out to every matched subscriber: fetch a
// snapshot, dispatch all sends concurrently, join, then delete the whole
// matched set. Deletion is unconditional once all sends have settled; the
// system prefers never re-notifying an attempted subscriber over perfect
// delivery.
type Engine struct {
	store       models.SubscriptionStore
	sender      Sender
	fallback    FallbackNotifier
	recorder    audit.Recorder
	sendTimeout time.Duration
	logger      logger.Logger
}

func NewEngine(
	store models.SubscriptionStore,
	sender Sender,
	fallback FallbackNotifier,
	recorder audit.Recorder,
	sendTimeout time.Duration,
	log logger.Logger,
) *Engine {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Engine{
		store:       store,
		sender:      sender,
		fallback:    fallback,
		recorder:    recorder,
		sendTimeout: sendTimeout,
		logger:      log.WithFields(map[string]interface{}{"component": "fanout-engine"}),
	}
}

func (e *Engine) Dispatch(ctx context.Context, event *models.RestockEvent, content *models.EmailContent) *Result {
	result := &Result{}

	// An empty product id matches nothing by definition: no store query.
	if event.ProductID == "" {
		result.FallbackReason = ReasonUnresolved
		metrics.FallbackAlerts.WithLabelValues(ReasonUnresolved).Inc()
		e.fallback.Notify(ctx, event, ReasonUnresolved)
		return result
	}

	subs, err := e.store.FindActiveByProduct(ctx, event.ProductID)
	if err != nil {
		e.logger.WithError(err).Error("subscription snapshot failed", map[string]interface{}{
			"productId": event.ProductID,
		})
		result.FallbackReason = ReasonNoSubscribers
		metrics.FallbackAlerts.WithLabelValues(ReasonNoSubscribers).Inc()
		e.fallback.Notify(ctx, event, ReasonNoSubscribers)
		return result
	}

	if len(subs) == 0 {
		result.FallbackReason = ReasonNoSubscribers
		metrics.FallbackAlerts.WithLabelValues(ReasonNoSubscribers).Inc()
		e.fallback.Notify(ctx, event, ReasonNoSubscribers)
		return result
	}

	result.Matched = len(subs)
	metrics.FanoutBatchSize.Observe(float64(len(subs)))

	// Send all, then delete all: one goroutine per subscriber, a full join
	// before the gating deletion step. No early cancellation between sends.
	results := make(chan models.DispatchResult, len(subs))
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()

			job := models.NotificationJob{
				RecipientEmail:  sub.Email,
				ProductID:       event.ProductID,
				InventoryItemID: event.InventoryItemID,
				SourceDomain:    event.SourceDomain,
			}

			sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
			defer cancel()

			err := e.sender.Send(sendCtx, job, content)
			results <- models.DispatchResult{RecipientEmail: sub.Email, Err: err}
		}(sub)
	}
	wg.Wait()
	close(results)

	for res := range results {
		status := audit.StatusSent
		if res.Err != nil {
			status = audit.StatusFailed
			result.Failed++
			metrics.NotificationsFailed.Inc()
			e.logger.WithError(res.Err).Error("notification send failed", map[string]interface{}{
				"recipient": res.RecipientEmail,
				"productId": event.ProductID,
			})
		} else {
			result.Sent++
			metrics.NotificationsSent.Inc()
		}
		e.recorder.RecordDispatch(ctx, audit.DispatchRecord{
			RecipientEmail:  res.RecipientEmail,
			ProductID:       event.ProductID,
			InventoryItemID: event.InventoryItemID,
			SourceDomain:    event.SourceDomain,
			Status:          status,
			OccurredAt:      time.Now().UTC(),
		})
	}

	// Every matched id is retired regardless of individual send outcomes.
	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	deleted, err := e.store.DeleteByIDs(ctx, ids)
	if err != nil {
		e.logger.WithError(err).Error("subscription cleanup failed", map[string]interface{}{
			"productId": event.ProductID,
			"ids":       len(ids),
		})
	}
	result.Deleted = deleted

	return result
}
