package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/cubesweeper/api"
	"github.com/wricardo/mcp-training/cubesweeper/game/config"
	"github.com/wricardo/mcp-training/cubesweeper/game/engine"
	"github.com/wricardo/mcp-training/cubesweeper/game/service"
	"github.com/wricardo/mcp-training/cubesweeper/game/session"
)

// engineGame plays against a local engine
type engineGame struct {
	eng *engine.GameEngine
}

func (g *engineGame) Reset(ctx context.Context) (*engine.GameState, error) {
	return g.eng.Reset().PlayerView(), nil
}

func (g *engineGame) Act(ctx context.Context, action string, index int) (*ActionOutcome, error) {
	var res engine.ActionResult
	switch action {
	case service.ActionFlag:
		res = g.eng.ToggleFlag(index)
	case service.ActionChord:
		res = g.eng.ChordClick(index)
	default:
		res = g.eng.RevealCell(index)
	}
	return &ActionOutcome{Success: res.Success, Reason: res.Reason, State: g.eng.GetGameState().PlayerView()}, nil
}

// rejectingGame refuses every action
type rejectingGame struct {
	state *engine.GameState
	calls int
}

func (g *rejectingGame) Reset(ctx context.Context) (*engine.GameState, error) {
	return g.state, nil
}

func (g *rejectingGame) Act(ctx context.Context, action string, index int) (*ActionOutcome, error) {
	g.calls++
	return &ActionOutcome{Success: false, Reason: engine.ReasonNotPlaying, State: g.state}, nil
}

func newEngineGame(t *testing.T, width, height, depth, mines int, layout ...int) *engineGame {
	t.Helper()
	cfg := &engine.GameConfig{
		Name:           "test",
		Width:          width,
		Height:         height,
		Depth:          depth,
		MineCount:      mines,
		FirstClickSafe: true,
		AutoReveal:     true,
	}
	opts := []engine.Option{engine.WithSeed(7)}
	if len(layout) > 0 {
		opts = []engine.Option{engine.WithPlacer(engine.FixedLayout(layout))}
	}
	eng, err := engine.NewEngine(cfg, opts...)
	require.NoError(t, err)
	return &engineGame{eng: eng}
}

func newTestPlayer(game Game, maxMoves int) *Player {
	log, _ := test.NewNullLogger()
	return NewPlayer(game, 1, maxMoves, 0, log)
}

func TestPlayer_WinsWithOpener(t *testing.T) {
	game := newEngineGame(t, 5, 1, 1, 2, 0, 4)
	player := newTestPlayer(game, 10)

	state, err := game.Reset(context.Background())
	require.NoError(t, err)

	res, err := player.Play(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, engine.StatusWon, res.Status)
	assert.Equal(t, 1, res.Moves)
	assert.Equal(t, 1, res.Guesses, "the opener counts as a guess")
}

func TestPlayer_AlwaysReachesTerminalState(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		game := newEngineGame(t, 4, 4, 2, 4)
		log, _ := test.NewNullLogger()
		player := NewPlayer(game, seed, 200, 0, log)

		state, err := game.Reset(context.Background())
		require.NoError(t, err)

		res, err := player.Play(context.Background(), state)
		require.NoError(t, err)
		assert.NotEqual(t, engine.StatusPlaying, res.Status, "seed %d", seed)
		assert.Equal(t, res.Status == engine.StatusWon, res.Won)
	}
}

func TestPlayer_StopsOnRepeatedRejection(t *testing.T) {
	state := engine.InitGameStateFromConfig(&engine.GameConfig{Name: "stuck", Width: 3, Height: 3, Depth: 1, MineCount: 1})
	game := &rejectingGame{state: state}
	player := newTestPlayer(game, 100)

	res, err := player.Play(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected twice")
	assert.Equal(t, 2, game.calls)
	assert.Equal(t, 2, res.Rejected)
}

func TestPlayer_MaxMoves(t *testing.T) {
	state := engine.InitGameStateFromConfig(&engine.GameConfig{Name: "stuck", Width: 3, Height: 3, Depth: 1, MineCount: 1})
	player := newTestPlayer(&rejectingGame{state: state}, 1)

	res, err := player.Play(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Moves)
	assert.False(t, res.Won)
	assert.Equal(t, engine.StatusPlaying, res.Status)
}

func TestPlayer_ContextCancelled(t *testing.T) {
	game := newEngineGame(t, 5, 1, 1, 2, 0, 4)
	player := newTestPlayer(game, 10)
	state, _ := game.Reset(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := player.Play(ctx, state)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlayUntilWin(t *testing.T) {
	game := newEngineGame(t, 5, 1, 1, 2, 0, 4)
	player := newTestPlayer(game, 10)

	res, attempts, err := player.PlayUntilWin(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, 1, attempts)
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	log, _ := test.NewNullLogger()

	configs, err := config.NewManager("")
	require.NoError(t, err)
	sessions := session.NewManager(session.WithLogger(log))
	svc := service.NewGameService(sessions, configs, service.WithLogger(log))

	srv := httptest.NewServer(api.NewServer(svc, nil, api.WithLogger(log)))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SessionLifecycle(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	client := NewClient(srv.URL + "/")

	state, err := client.CreateSession(ctx, "beginner-3d")
	require.NoError(t, err)
	require.NotEmpty(t, client.SessionID())
	assert.Equal(t, 3, state.Width)
	assert.Equal(t, 3, state.Depth)
	assert.Equal(t, 5, state.MineCount)

	resp, err := client.Act(ctx, service.ActionReveal, 13)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	state, err = client.GetState(ctx)
	require.NoError(t, err)
	assert.Positive(t, state.RevealedCount)
	for _, c := range state.Cells {
		if !c.IsRevealed {
			assert.False(t, c.IsMine, "hidden mines must be masked")
		}
	}

	state, err = client.Reset(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.RevealedCount)
	assert.Equal(t, engine.StatusPlaying, state.GameStatus)
}

func TestClient_Errors(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	client := NewClient(srv.URL)

	_, err := client.Resume(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = client.CreateSession(ctx, "impossible-9d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRemotePlay(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()
	client := NewClient(srv.URL)

	_, err := client.CreateSession(ctx, "beginner-2d")
	require.NoError(t, err)

	player := newTestPlayer(remoteGame{client}, 500)
	res, attempts, err := player.PlayUntilWin(ctx, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, attempts, 2)
	assert.NotEqual(t, engine.StatusPlaying, res.Status)
}
