package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playfield/internal/api"
	"github.com/mcoot/playfield/internal/api/middleware"
	"github.com/mcoot/playfield/internal/feed/hub"
	"github.com/mcoot/playfield/internal/feed/sse"
	"github.com/mcoot/playfield/internal/feed/ws"
	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/remote"
	"github.com/mcoot/playfield/internal/storage/memory"
	"github.com/mcoot/playfield/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	server *httptest.Server
	hub    *hub.Hub
	client *remote.Client
	ctx    context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	logger := testutil.NopLogger()
	store := memory.New()
	s.hub = hub.New("players", logger)
	go s.hub.Run()

	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Storage:     store,
		StorageType: "memory",
		Hub:         s.hub,
		RateLimit:   middleware.RateLimitConfig{},
	}))
	s.client = remote.New(s.server.URL+"/", remote.TransportSSE, logger)
	s.ctx = context.Background()
}

func (s *ClientSuite) TearDownTest() {
	s.hub.Close()
	s.server.Close()
}

func (s *ClientSuite) player(id string) *model.Player {
	return &model.Player{ID: model.PlayerID(id), X: 400, Y: 300, Color: "hsl(10, 70%, 50%)", Name: "Name " + id}
}

func (s *ClientSuite) TestRoundTrip() {
	s.Require().NoError(s.client.InsertPlayer(s.ctx, s.player("a")))
	s.Require().NoError(s.client.InsertPlayer(s.ctx, s.player("b with space")))

	updated, err := s.client.UpdatePlayerPosition(s.ctx, "a", model.PositionUpdate{X: 12.5, Y: 0})
	s.Require().NoError(err)
	s.Equal(model.Position{X: 12.5, Y: 0}, updated.Position())
	s.Equal("Name a", updated.Name)

	players, err := s.client.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(model.PlayerID("a"), players[0].ID)
	s.Equal(12.5, players[0].X)
	s.Equal(model.PlayerID("b with space"), players[1].ID)

	s.Require().NoError(s.client.DeletePlayer(s.ctx, "b with space"))
	s.Require().NoError(s.client.DeletePlayer(s.ctx, "b with space"))

	players, err = s.client.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *ClientSuite) TestErrorsMapToSentinels() {
	s.Require().NoError(s.client.InsertPlayer(s.ctx, s.player("a")))

	err := s.client.InsertPlayer(s.ctx, s.player("a"))
	s.ErrorIs(err, model.ErrPlayerExists)

	var apiErr *remote.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusConflict, apiErr.Status)

	_, err = s.client.UpdatePlayerPosition(s.ctx, "missing", model.PositionUpdate{X: 1, Y: 1})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ClientSuite) TestContextCancelled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.client.ListPlayers(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *ClientSuite) TestHealth() {
	health, err := s.client.Health(s.ctx)
	s.Require().NoError(err)
	s.Equal("ok", health.Status)
	s.Equal("memory", health.Storage)
}

func (s *ClientSuite) TestSourceFollowsTransport() {
	s.IsType(&sse.Source{}, s.client.Source())
	wsClient := remote.New(s.server.URL, remote.TransportWebsocket, testutil.NopLogger())
	s.IsType(&ws.Source{}, wsClient.Source())

	sub, err := wsClient.Source().Subscribe(s.ctx)
	s.Require().NoError(err)
	s.Eventually(func() bool { return s.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	s.NoError(sub.Close())
}

func (s *ClientSuite) TestParseTransport() {
	for in, want := range map[string]remote.Transport{
		"":          remote.TransportSSE,
		"sse":       remote.TransportSSE,
		"WS":        remote.TransportWebsocket,
		"websocket": remote.TransportWebsocket,
	} {
		got, err := remote.ParseTransport(in)
		s.Require().NoError(err, in)
		s.Equal(want, got, in)
	}

	_, err := remote.ParseTransport("carrier-pigeon")
	s.Error(err)
}
