package roster

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/testutil"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func player(id string, x, y float64) model.Player {
	return model.Player{ID: model.PlayerID(id), X: x, Y: y, Color: "hsl(10, 70%, 50%)", Name: "P-" + id}
}

func ids(players []model.Player) []model.PlayerID {
	out := make([]model.PlayerID, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func TestReduce_InsertIsIdempotent(t *testing.T) {
	s := NewState(nil)
	s, out := Reduce(s, model.InsertEvent(player("a", 1, 1), at), UpsertMissing)
	assert.Equal(t, Inserted, out)

	s2, out := Reduce(s, model.InsertEvent(player("a", 9, 9), at), UpsertMissing)
	assert.Equal(t, Ignored, out)
	assert.Equal(t, 1, s2.Len())

	got, ok := s2.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.X, "duplicate insert must not replace the row")
}

func TestReduce_DeleteUnknownIsNoop(t *testing.T) {
	s := NewState([]model.Player{player("a", 0, 0)})
	s2, out := Reduce(s, model.DeleteEvent("zzz", at), UpsertMissing)
	assert.Equal(t, Ignored, out)
	assert.Equal(t, []model.PlayerID{"a"}, ids(s2.Players()))
}

func TestReduce_InsertUpdateDelete(t *testing.T) {
	s := NewState(nil)

	s, _ = Reduce(s, model.InsertEvent(model.Player{ID: "A", X: 10, Y: 10, Color: "c", Name: "n"}, at), UpsertMissing)
	require.Equal(t, 1, s.Len())

	s, out := Reduce(s, model.UpdateEvent(model.Player{ID: "A", X: 15, Y: 10, Color: "c", Name: "n"}, at), UpsertMissing)
	assert.Equal(t, Updated, out)
	got, _ := s.Get("A")
	assert.Equal(t, model.Position{X: 15, Y: 10}, got.Position())
	assert.Equal(t, 1, s.Len())

	s, out = Reduce(s, model.DeleteEvent("A", at), UpsertMissing)
	assert.Equal(t, Deleted, out)
	assert.Equal(t, 0, s.Len())
}

func TestReduce_UpdateMissingPolicy(t *testing.T) {
	ev := model.UpdateEvent(player("ghost", 5, 5), at)

	healed, out := Reduce(NewState(nil), ev, UpsertMissing)
	assert.Equal(t, Inserted, out)
	assert.Equal(t, 1, healed.Len())

	dropped, out := Reduce(NewState(nil), ev, DropMissing)
	assert.Equal(t, Ignored, out)
	assert.Equal(t, 0, dropped.Len())
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := NewState([]model.Player{player("a", 1, 1), player("b", 2, 2)})

	_, _ = Reduce(before, model.UpdateEvent(player("a", 50, 50), at), UpsertMissing)
	_, _ = Reduce(before, model.DeleteEvent("a", at), UpsertMissing)
	_, _ = Reduce(before, model.InsertEvent(player("c", 3, 3), at), UpsertMissing)

	assert.Equal(t, []model.PlayerID{"a", "b"}, ids(before.Players()))
	a, _ := before.Get("a")
	assert.Equal(t, 1.0, a.X)
}

func TestReduce_PreservesArrivalOrder(t *testing.T) {
	s := NewState(nil)
	for _, id := range []string{"c", "a", "b"} {
		s, _ = Reduce(s, model.InsertEvent(player(id, 0, 0), at), UpsertMissing)
	}
	s, _ = Reduce(s, model.UpdateEvent(player("a", 7, 7), at), UpsertMissing)
	s, _ = Reduce(s, model.DeleteEvent("c", at), UpsertMissing)
	s, _ = Reduce(s, model.InsertEvent(player("d", 0, 0), at), UpsertMissing)

	assert.Equal(t, []model.PlayerID{"a", "b", "d"}, ids(s.Players()))
	b, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, model.PlayerID("b"), b.ID)
}

func TestReduce_OutOfOrderUpdatesLastAppliedWins(t *testing.T) {
	s := NewState([]model.Player{player("a", 0, 0)})
	newer := model.UpdateEvent(player("a", 20, 0), at.Add(time.Second))
	older := model.UpdateEvent(player("a", 10, 0), at)

	s, _ = Reduce(s, newer, UpsertMissing)
	s, _ = Reduce(s, older, UpsertMissing)

	got, _ := s.Get("a")
	assert.Equal(t, 10.0, got.X)
}

func TestNewState_CollapsesDuplicateIDs(t *testing.T) {
	s := NewState([]model.Player{player("a", 1, 1), player("b", 2, 2), player("a", 3, 3)})
	assert.Equal(t, []model.PlayerID{"a", "b"}, ids(s.Players()))
	a, _ := s.Get("a")
	assert.Equal(t, 3.0, a.X)
}

func TestStore_ReplaceAllThenDeltas(t *testing.T) {
	store := New(testutil.NopLogger())
	store.ReplaceAll([]model.Player{player("a", 1, 1), player("b", 2, 2)})

	handle := store.Handler()
	handle(model.InsertEvent(player("b", 99, 99), at))
	handle(model.InsertEvent(player("c", 3, 3), at))
	handle(model.DeleteEvent("a", at))

	assert.Equal(t, []model.PlayerID{"b", "c"}, ids(store.Snapshot()))
	assert.Equal(t, 2, store.Len())

	b, ok := store.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, b.X)

	// Replacing discards everything that came before
	store.ReplaceAll(nil)
	assert.Equal(t, 0, store.Len())
}

func TestStore_InvalidEventIgnoredWithWarning(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	store := New(logger)

	out := store.Apply(model.ChangeEvent{Kind: model.ChangeInsert})
	assert.Equal(t, Ignored, out)
	out = store.Apply(model.ChangeEvent{Kind: "TRUNCATE"})
	assert.Equal(t, Ignored, out)

	assert.Equal(t, 0, store.Len())
	assert.True(t, logs.Contains("ignoring invalid change event"))
}

func TestStore_DropMissingOption(t *testing.T) {
	store := New(testutil.NopLogger(), WithMissingUpdatePolicy(DropMissing))
	assert.Equal(t, Ignored, store.Apply(model.UpdateEvent(player("x", 1, 1), at)))
	assert.Equal(t, 0, store.Len())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	store := New(testutil.NopLogger())
	store.ReplaceAll([]model.Player{player("a", 1, 1)})

	snap := store.Snapshot()
	snap[0].X = 500

	a, _ := store.Get("a")
	assert.Equal(t, 1.0, a.X)
}

func TestStore_ConcurrentReadersNeverSeeDuplicates(t *testing.T) {
	store := New(testutil.NopLogger())
	handle := store.Handler()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				seen := map[model.PlayerID]bool{}
				for _, p := range store.Snapshot() {
					if seen[p.ID] {
						t.Errorf("duplicate id %s in snapshot", p.ID)
						return
					}
					seen[p.ID] = true
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		id := string(rune('a' + i%5))
		handle(model.InsertEvent(player(id, float64(i), 0), at))
		handle(model.UpdateEvent(player(id, float64(i+1), 0), at))
		if i%3 == 0 {
			handle(model.DeleteEvent(model.PlayerID(id), at))
		}
	}
	close(stop)
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 5)
}
