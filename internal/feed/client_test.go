package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
	"github.com/mcoot/playfield/internal/storage/memory"
	"github.com/mcoot/playfield/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (r *recorder) handle(ev model.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []model.ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChangeKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type failingSource struct{ err error }

func (f failingSource) Subscribe(context.Context) (storage.Subscription, error) {
	return nil, f.err
}

func player(id string) *model.Player {
	return &model.Player{ID: model.PlayerID(id), Name: id, Color: "hsl(1, 70%, 50%)"}
}

func TestDeliversInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client := NewClient(store, testutil.NopLogger())
	rec := &recorder{}

	require.NoError(t, client.Subscribe(ctx, rec.handle))
	defer client.Unsubscribe()

	require.NoError(t, store.InsertPlayer(ctx, player("a")))
	_, err := store.UpdatePlayerPosition(ctx, "a", model.PositionUpdate{X: 5})
	require.NoError(t, err)
	require.NoError(t, store.DeletePlayer(ctx, "a"))

	want := []model.ChangeKind{model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete}
	assert.Eventually(t, func() bool { return len(rec.kinds()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, rec.kinds())
}

func TestBaselineRunsBeforeFirstDelivery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client := NewClient(store, testutil.NopLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	baseline := func(ctx context.Context) error {
		// Write while the stream is open but before dispatch starts
		require.NoError(t, store.InsertPlayer(ctx, player("a")))
		mu.Lock()
		order = append(order, "baseline")
		mu.Unlock()
		return nil
	}
	handler := func(ev model.ChangeEvent) {
		mu.Lock()
		order = append(order, string(ev.Kind))
		mu.Unlock()
	}

	require.NoError(t, client.Subscribe(ctx, handler, WithBaseline(baseline)))
	defer client.Unsubscribe()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"baseline", "INSERT"}, order)
}

func TestBaselineFailureKeepsLiveFeed(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	logger, logs := testutil.CaptureLogger()
	client := NewClient(store, logger)
	rec := &recorder{}

	err := client.Subscribe(ctx, rec.handle, WithBaseline(func(context.Context) error {
		return errors.New("select failed")
	}))
	require.NoError(t, err)
	defer client.Unsubscribe()

	require.NoError(t, store.InsertPlayer(ctx, player("a")))
	assert.Eventually(t, func() bool { return len(rec.kinds()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, logs.Contains("feed baseline failed"))
}

func TestSubscribeFailureIsReturned(t *testing.T) {
	client := NewClient(failingSource{err: errors.New("connection refused")}, testutil.NopLogger())

	err := client.Subscribe(context.Background(), func(model.ChangeEvent) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// A failed subscribe leaves the client reusable
	client.Unsubscribe()
	select {
	case <-client.Done():
	default:
		t.Fatal("Done should be closed when never subscribed")
	}
}

func TestSecondSubscribeRejected(t *testing.T) {
	client := NewClient(memory.New(), testutil.NopLogger())
	require.NoError(t, client.Subscribe(context.Background(), func(model.ChangeEvent) {}))
	defer client.Unsubscribe()

	err := client.Subscribe(context.Background(), func(model.ChangeEvent) {})
	assert.ErrorIs(t, err, model.ErrAlreadySubscribed)
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client := NewClient(store, testutil.NopLogger())
	rec := &recorder{}

	require.NoError(t, client.Subscribe(ctx, rec.handle))
	client.Unsubscribe()
	client.Unsubscribe()

	<-client.Done()
	assert.Equal(t, 0, store.SubscriberCount())

	require.NoError(t, store.InsertPlayer(ctx, player("late")))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.kinds())
}

func TestResubscribeAfterUnsubscribe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	client := NewClient(store, testutil.NopLogger())
	rec := &recorder{}

	require.NoError(t, client.Subscribe(ctx, rec.handle))
	client.Unsubscribe()
	require.NoError(t, client.Subscribe(ctx, rec.handle))
	defer client.Unsubscribe()

	require.NoError(t, store.InsertPlayer(ctx, player("a")))
	assert.Eventually(t, func() bool { return len(rec.kinds()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestContextCancelStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(memory.New(), testutil.NopLogger())
	require.NoError(t, client.Subscribe(ctx, func(model.ChangeEvent) {}))

	cancel()
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("delivery did not stop after context cancel")
	}
	client.Unsubscribe()
}
