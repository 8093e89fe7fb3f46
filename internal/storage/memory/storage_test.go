package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playfield/internal/dependencies/mocks"
	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	clock   *mocks.MockClock
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.storage = New(WithClock(s.clock))
	s.ctx = context.Background()
}

func (s *StorageSuite) player(id, name string) *model.Player {
	return &model.Player{ID: model.PlayerID(id), X: 400, Y: 300, Color: "hsl(10, 70%, 50%)", Name: name}
}

func (s *StorageSuite) nextEvent(sub storage.Subscription) model.ChangeEvent {
	select {
	case ev, ok := <-sub.Events():
		s.Require().True(ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for event")
	}
	return model.ChangeEvent{}
}

// Table tests

func (s *StorageSuite) TestInsertAndList() {
	s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player("a", "Alice")))
	s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player("b", "Bob")))

	players, err := s.storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(model.PlayerID("a"), players[0].ID)
	s.Equal(model.PlayerID("b"), players[1].ID)
}

func (s *StorageSuite) TestInsertDuplicate() {
	s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player("a", "Alice")))
	err := s.storage.InsertPlayer(s.ctx, s.player("a", "Alice again"))
	s.ErrorIs(err, model.ErrPlayerExists)
}

func (s *StorageSuite) TestInsertInvalid() {
	err := s.storage.InsertPlayer(s.ctx, &model.Player{ID: "a"})
	s.ErrorIs(err, model.ErrInvalidPlayer)
}

func (s *StorageSuite) TestInsertCopiesInput() {
	p := s.player("a", "Alice")
	s.Require().NoError(s.storage.InsertPlayer(s.ctx, p))
	p.X = 1

	players, _ := s.storage.ListPlayers(s.ctx)
	s.Equal(float64(400), players[0].X)
}

func (s *StorageSuite) TestUpdatePosition() {
	s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player("a", "Alice")))

	updated, err := s.storage.UpdatePlayerPosition(s.ctx, "a", model.PositionUpdate{X: 405, Y: 300})
	s.Require().NoError(err)
	s.Equal(float64(405), updated.X)
	s.Equal("Alice", updated.Name)
}

func (s *StorageSuite) TestUpdateMissingDoesNotCreate() {
	_, err := s.storage.UpdatePlayerPosition(s.ctx, "ghost", model.PositionUpdate{X: 1, Y: 1})
	s.ErrorIs(err, model.ErrPlayerNotFound)

	players, _ := s.storage.ListPlayers(s.ctx)
	s.Empty(players)
}

func (s *StorageSuite) TestDeleteKeepsOrder() {
	for _, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player(id, id)))
	}
	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "b"))

	players, _ := s.storage.ListPlayers(s.ctx)
	s.Require().Len(players, 2)
	s.Equal(model.PlayerID("a"), players[0].ID)
	s.Equal(model.PlayerID("c"), players[1].ID)
}

func (s *StorageSuite) TestDeleteMissingIsNoop() {
	s.NoError(s.storage.DeletePlayer(s.ctx, "ghost"))
}

// Feed tests

func (s *StorageSuite) TestSubscribeReceivesChangesInOrder() {
	sub, err := s.storage.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer func() { _ = sub.Close() }()

	s.Require().NoError(s.storage.InsertPlayer(s.ctx, s.player("a", "Alice")))
	_, err = s.storage.UpdatePlayerPosition(s.ctx, "a", model.PositionUpdate{X: 5, Y: 0})
	s.Require().NoError(err)
	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "a"))

	ev := s.nextEvent(sub)
	s.Equal(model.ChangeInsert, ev.Kind)
	s.Equal(model.PlayerID("a"), ev.PlayerID())
	s.Equal(s.clock.Now(), ev.CommitTimestamp)

	ev = s.nextEvent(sub)
	s.Equal(model.ChangeUpdate, ev.Kind)
	s.Equal(float64(5), ev.New.X)

	ev = s.nextEvent(sub)
	s.Equal(model.ChangeDelete, ev.Kind)
	s.Equal(model.PlayerID("a"), ev.Old.ID)
}

func (s *StorageSuite) TestFailedWritesPublishNothing() {
	sub, err := s.storage.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer func() { _ = sub.Close() }()

	_, _ = s.storage.UpdatePlayerPosition(s.ctx, "ghost", model.PositionUpdate{})
	_ = s.storage.DeletePlayer(s.ctx, "ghost")

	select {
	case ev := <-sub.Events():
		s.Failf("unexpected event", "%+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func (s *StorageSuite) TestCloseIsIdempotent() {
	sub, err := s.storage.Subscribe(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.storage.SubscriberCount())

	s.NoError(sub.Close())
	s.NoError(sub.Close())
	s.Equal(0, s.storage.SubscriberCount())

	_, ok := <-sub.Events()
	s.False(ok)
}

func (s *StorageSuite) TestContextCancelClosesSubscription() {
	ctx, cancel := context.WithCancel(s.ctx)
	sub, err := s.storage.Subscribe(ctx)
	s.Require().NoError(err)

	cancel()
	s.Eventually(func() bool { return s.storage.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-sub.Events()
	s.False(ok)
}
