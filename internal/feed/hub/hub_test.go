package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage/memory"
	"github.com/mcoot/playfield/internal/testutil"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.Messages():
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	h := New("players", testutil.NopLogger())
	go h.Run()
	defer h.Close()

	a := NewClient("a")
	b := NewClient("b")
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))

	assert.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	h.Broadcast(Message{Event: "INSERT", Data: []byte(`{"x":1}`)})

	assert.Equal(t, "INSERT", receive(t, a).Event)
	assert.Equal(t, `{"x":1}`, string(receive(t, b).Data))
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	h := New("players", testutil.NopLogger())
	go h.Run()
	defer h.Close()

	c := NewClient("a")
	require.True(t, h.Register(c))
	h.Unregister(c)

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}
	assert.Equal(t, 0, h.ClientCount())

	// Unregistering twice is harmless
	h.Unregister(c)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := New("players", testutil.NopLogger())
	go h.Run()

	c := NewClient("a")
	require.True(t, h.Register(c))
	h.Close()
	h.Close()

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}

	assert.False(t, h.Register(NewClient("late")))
	h.Unregister(c)
}

func TestHub_SlowClientDropsMessages(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := New("players", logger)
	go h.Run()
	defer h.Close()

	slow := NewClient("slow")
	require.True(t, h.Register(slow))

	for i := 0; i < sendBufferSize+10; i++ {
		h.Broadcast(Message{Event: "UPDATE"})
		// Let the loop drain the hub buffer so drops happen per client
		if i%64 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	assert.Eventually(t, func() bool {
		return logs.Contains("client buffer full") || logs.Contains("hub buffer full")
	}, time.Second, 5*time.Millisecond)
}

func TestRelay_ForwardsStorageEvents(t *testing.T) {
	store := memory.New()
	h := New("players", testutil.NopLogger())
	go h.Run()
	defer h.Close()

	c := NewClient("a")
	require.True(t, h.Register(c))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay := NewRelay(store, h, testutil.NopLogger())
	go relay.Run(ctx)

	assert.Eventually(t, func() bool { return store.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	p := &model.Player{ID: "p1", X: 10, Y: 20, Color: "hsl(1, 70%, 50%)", Name: "Ann"}
	require.NoError(t, store.InsertPlayer(ctx, p))
	require.NoError(t, store.DeletePlayer(ctx, "p1"))

	msg := receive(t, c)
	assert.Equal(t, "INSERT", msg.Event)
	var ev model.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	require.NotNil(t, ev.New)
	assert.Equal(t, model.PlayerID("p1"), ev.New.ID)

	msg = receive(t, c)
	assert.Equal(t, "DELETE", msg.Event)

	cancel()
	assert.Eventually(t, func() bool { return store.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}
