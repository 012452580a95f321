// internal/fanout/engine_test.go
package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restock-dispatcher/internal/audit"
	"restock-dispatcher/internal/common/logger"
	"restock-dispatcher/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Mock Implementations
// ==========================

type MockSubscriptionStore struct {
	FindActiveByProductFunc func(ctx context.Context, productID string) ([]models.Subscription, error)
	DeleteByIDsFunc         func(ctx context.Context, ids []int64) (int64, error)

	mu          sync.Mutex
	FindCalls   int
	DeleteCalls int
	DeletedIDs  []int64
}

func (m *MockSubscriptionStore) FindActiveByProduct(ctx context.Context, productID string) ([]models.Subscription, error) {
	m.mu.Lock()
	m.FindCalls++
	m.mu.Unlock()
	return m.FindActiveByProductFunc(ctx, productID)
}

func (m *MockSubscriptionStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	m.DeleteCalls++
	m.DeletedIDs = append(m.DeletedIDs, ids...)
	m.mu.Unlock()
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockSubscriptionStore) Upsert(ctx context.Context, email, inventoryItemID, productID string) (*models.Subscription, error) {
	panic("not used by the fan-out engine")
}

type MockSender struct {
	SendFunc func(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error

	mu         sync.Mutex
	Recipients []string
}

func (m *MockSender) Send(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
	m.mu.Lock()
	m.Recipients = append(m.Recipients, job.RecipientEmail)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, job, content)
	}
	return nil
}

type MockFallback struct {
	mu      sync.Mutex
	Calls   int
	Reasons []string
}

func (m *MockFallback) Notify(ctx context.Context, event *models.RestockEvent, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Reasons = append(m.Reasons, reason)
}

type MockRecorder struct {
	mu      sync.Mutex
	Records []audit.DispatchRecord
}

func (m *MockRecorder) RecordDispatch(ctx context.Context, record audit.DispatchRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
}

// ==========================
// Test Helper Functions
// ==========================

func testSubscriptions(emails ...string) []models.Subscription {
	subs := make([]models.Subscription, 0, len(emails))
	for i, email := range emails {
		subs = append(subs, models.Subscription{
			ID:              int64(i + 1),
			Email:           email,
			InventoryItemID: "806092912",
			ProductID:       "632910392",
			Active:          true,
		})
	}
	return subs
}

func testEvent() *models.RestockEvent {
	return &models.RestockEvent{
		InventoryItemID: "806092912",
		Available:       5,
		SourceDomain:    "shop.example.com",
		ProductID:       "632910392",
	}
}

func testContent() *models.EmailContent {
	return &models.EmailContent{Subject: "Back in stock", HTMLBody: "<p>restocked</p>"}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestEngine_Dispatch_AllSucceed(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			assert.Equal(t, "632910392", productID)
			return testSubscriptions("a@x.com", "b@x.com", "c@x.com"), nil
		},
	}
	sender := &MockSender{}
	fallback := &MockFallback{}
	recorder := &MockRecorder{}

	engine := NewEngine(store, sender, fallback, recorder, 5*time.Second, logger.NewTestLogger(t))
	result := engine.Dispatch(context.Background(), testEvent(), testContent())

	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 3, result.Sent)
	assert.Zero(t, result.Failed)
	assert.Equal(t, int64(3), result.Deleted)
	assert.Empty(t, result.FallbackReason)

	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "c@x.com"}, sender.Recipients)
	assert.ElementsMatch(t, []int64{1, 2, 3}, store.DeletedIDs)
	assert.Zero(t, fallback.Calls)
	assert.Len(t, recorder.Records, 3)
}

func TestEngine_Dispatch_PartialFailureStillDeletesAll(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			return testSubscriptions("a@x.com", "b@x.com", "c@x.com"), nil
		},
	}
	sender := &MockSender{
		SendFunc: func(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
			if job.RecipientEmail == "b@x.com" {
				return errors.New("smtp 550 mailbox unavailable")
			}
			return nil
		},
	}
	fallback := &MockFallback{}
	recorder := &MockRecorder{}

	engine := NewEngine(store, sender, fallback, recorder, 5*time.Second, logger.NewTestLogger(t))
	result := engine.Dispatch(context.Background(), testEvent(), testContent())

	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)

	// All matched ids are retired, the failed recipient's included.
	assert.ElementsMatch(t, []int64{1, 2, 3}, store.DeletedIDs)
	assert.Equal(t, int64(3), result.Deleted)
	assert.Zero(t, fallback.Calls)

	var failed []string
	for _, rec := range recorder.Records {
		if rec.Status == audit.StatusFailed {
			failed = append(failed, rec.RecipientEmail)
		}
	}
	assert.Equal(t, []string{"b@x.com"}, failed)
}

func TestEngine_Dispatch_AllFailStillDeletesAll(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			return testSubscriptions("a@x.com", "b@x.com"), nil
		},
	}
	sender := &MockSender{
		SendFunc: func(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
			return errors.New("provider outage")
		},
	}
	fallback := &MockFallback{}

	engine := NewEngine(store, sender, fallback, nil, 5*time.Second, logger.NewTestLogger(t))
	result := engine.Dispatch(context.Background(), testEvent(), testContent())

	assert.Equal(t, 2, result.Matched)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 2, result.Failed)
	assert.ElementsMatch(t, []int64{1, 2}, store.DeletedIDs)
	assert.Equal(t, int64(2), result.Deleted)
	assert.Zero(t, fallback.Calls)
}

func TestEngine_Dispatch_UnresolvedProduct(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			t.Fatal("store must not be queried for an unresolved product")
			return nil, nil
		},
	}
	sender := &MockSender{}
	fallback := &MockFallback{}

	engine := NewEngine(store, sender, fallback, nil, 5*time.Second, logger.NewTestLogger(t))

	event := testEvent()
	event.ProductID = ""
	result := engine.Dispatch(context.Background(), event, testContent())

	assert.Equal(t, ReasonUnresolved, result.FallbackReason)
	assert.Zero(t, result.Matched)
	assert.Zero(t, store.FindCalls)
	assert.Zero(t, store.DeleteCalls)
	assert.Empty(t, sender.Recipients)
	assert.Equal(t, 1, fallback.Calls)
	assert.Equal(t, []string{ReasonUnresolved}, fallback.Reasons)
}

func TestEngine_Dispatch_NoSubscribers(t *testing.T) {
	tests := []struct {
		name string
		subs []models.Subscription
		err  error
	}{
		{name: "empty snapshot", subs: nil},
		{name: "store query error", err: errors.New("pq: connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockSubscriptionStore{
				FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
					return tt.subs, tt.err
				},
			}
			sender := &MockSender{}
			fallback := &MockFallback{}

			engine := NewEngine(store, sender, fallback, nil, 5*time.Second, logger.NewTestLogger(t))
			result := engine.Dispatch(context.Background(), testEvent(), testContent())

			assert.Equal(t, ReasonNoSubscribers, result.FallbackReason)
			assert.Zero(t, result.Matched)
			assert.Zero(t, store.DeleteCalls)
			assert.Empty(t, sender.Recipients)
			assert.Equal(t, 1, fallback.Calls)
		})
	}
}

// ==========================
// Concurrency Tests
// ==========================

func TestEngine_Dispatch_SendsRunConcurrently(t *testing.T) {
	const n = 5

	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			return testSubscriptions("a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"), nil
		},
	}

	// Every send blocks until all n are in flight; the dispatch can only
	// finish if the engine runs them concurrently.
	var barrier sync.WaitGroup
	barrier.Add(n)
	sender := &MockSender{
		SendFunc: func(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
			barrier.Done()
			barrier.Wait()
			return nil
		},
	}

	engine := NewEngine(store, sender, &MockFallback{}, nil, 5*time.Second, logger.NewTestLogger(t))

	done := make(chan *Result, 1)
	go func() {
		done <- engine.Dispatch(context.Background(), testEvent(), testContent())
	}()

	select {
	case result := <-done:
		assert.Equal(t, n, result.Sent)
		assert.Equal(t, int64(n), result.Deleted)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch deadlocked; sends are not concurrent")
	}
}

func TestEngine_Dispatch_PerSendTimeout(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			return testSubscriptions("slow@x.com", "fast@x.com"), nil
		},
	}
	sender := &MockSender{
		SendFunc: func(ctx context.Context, job models.NotificationJob, content *models.EmailContent) error {
			if job.RecipientEmail == "slow@x.com" {
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		},
	}

	engine := NewEngine(store, sender, &MockFallback{}, nil, 50*time.Millisecond, logger.NewTestLogger(t))
	result := engine.Dispatch(context.Background(), testEvent(), testContent())

	// The stalled send times out; the other completes; both rows go.
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.ElementsMatch(t, []int64{1, 2}, store.DeletedIDs)
}

// ==========================
// Edge Cases
// ==========================

func TestEngine_Dispatch_DeleteFailureIsAbsorbed(t *testing.T) {
	store := &MockSubscriptionStore{
		FindActiveByProductFunc: func(ctx context.Context, productID string) ([]models.Subscription, error) {
			return testSubscriptions("a@x.com"), nil
		},
		DeleteByIDsFunc: func(ctx context.Context, ids []int64) (int64, error) {
			return 0, errors.New("pq: deadlock detected")
		},
	}
	sender := &MockSender{}

	engine := NewEngine(store, sender, &MockFallback{}, nil, 5*time.Second, logger.NewTestLogger(t))
	result := engine.Dispatch(context.Background(), testEvent(), testContent())

	// Cleanup failure is logged only; the round still reports its sends.
	assert.Equal(t, 1, result.Sent)
	assert.Zero(t, result.Deleted)
	assert.Empty(t, result.FallbackReason)
}
