package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/playmatatu/gravpool/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(maxMatches int) *MatchManager {
	cfg := &config.Config{
		TickRate:        60,
		MaxMatches:      maxMatches,
		FrameEveryTicks: 2,
		FrameChannel:    "sim_frames",
	}
	return NewMatchManager(nil, nil, cfg, config.DefaultTuning(), zap.NewNop())
}

func TestManagerCreateAndGet(t *testing.T) {
	mm := newTestManager(4)
	ctx := context.Background()

	m, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario})
	require.NoError(t, err)
	assert.Len(t, m.ID, 36)

	got, err := mm.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = mm.GetMatch("nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Equal(t, 1, mm.ActiveMatchCount())
}

func TestManagerEnforcesMatchLimit(t *testing.T) {
	mm := newTestManager(1)
	ctx := context.Background()

	_, err := mm.CreateMatch(ctx, MatchOptions{})
	require.NoError(t, err)
	_, err = mm.CreateMatch(ctx, MatchOptions{})
	assert.ErrorIs(t, err, ErrTooManyMatches)
}

func TestManagerListIsOrdered(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()

	first, err := mm.CreateMatch(ctx, MatchOptions{})
	require.NoError(t, err)
	second, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario})
	require.NoError(t, err)

	frames := mm.ListMatches()
	require.Len(t, frames, 2)
	if first.CreatedAt.Equal(second.CreatedAt) {
		assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{frames[0].MatchID, frames[1].MatchID})
	} else {
		assert.Equal(t, first.ID, frames[0].MatchID)
		assert.Equal(t, second.ID, frames[1].MatchID)
	}
}

func TestManagerShootAndStep(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()
	m, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario, Manual: true})
	require.NoError(t, err)

	shot, err := mm.Shoot(ctx, m.ID, NewVec2(0, -80))
	require.NoError(t, err)
	assert.Equal(t, 1, shot.Number)

	res, frame, err := mm.Step(ctx, m.ID, 600)
	require.NoError(t, err)
	assert.Equal(t, 600, res.Ticks)
	assert.Len(t, res.Sinks, 1)
	assert.Equal(t, 1, frame.SunkCount)

	_, _, err = mm.Step(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestManagerDrag(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()
	m, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario})
	require.NoError(t, err)

	_, ok, err := mm.Drag(ctx, m.ID, NewVec2(0, 0), NewVec2(0.2, 0.2))
	require.NoError(t, err)
	assert.False(t, ok)

	shot, ok, err := mm.Drag(ctx, m.ID, NewVec2(0, 0), NewVec2(0, 100))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, NewVec2(0, -50), shot.Applied)
}

func TestManagerTickAllSkipsManualMatches(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()
	realtime, err := mm.CreateMatch(ctx, MatchOptions{})
	require.NoError(t, err)
	manual, err := mm.CreateMatch(ctx, MatchOptions{Manual: true})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		mm.TickAll(ctx)
	}

	assert.Equal(t, int64(5), realtime.Tick())
	assert.Equal(t, int64(0), manual.Tick())
}

func TestManagerRemoveMatch(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()
	m, err := mm.CreateMatch(ctx, MatchOptions{})
	require.NoError(t, err)

	require.NoError(t, mm.RemoveMatch(ctx, m.ID))
	assert.Equal(t, StatusCancelled, m.Status())
	assert.ErrorIs(t, mm.RemoveMatch(ctx, m.ID), ErrMatchNotFound)
	assert.Equal(t, 0, mm.ActiveMatchCount())

	history, err := mm.ShotHistory(ctx, m.ID)
	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestTickWorkerStopsOnCancel(t *testing.T) {
	mm := newTestManager(0)
	m, err := mm.CreateMatch(context.Background(), MatchOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mm.RunTickWorker(ctx) }()

	assert.Eventually(t, func() bool { return m.Tick() > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("tick worker did not stop")
	}
}

func TestTickWorkerRejectsZeroRate(t *testing.T) {
	mm := NewMatchManager(nil, nil, &config.Config{}, config.DefaultTuning(), nil)
	assert.Error(t, mm.RunTickWorker(context.Background()))
}

func TestManagerFramesGoToLocalListener(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()

	var payloads [][]byte
	mm.OnFrame(func(p []byte) { payloads = append(payloads, p) })

	m, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario, Manual: true})
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	var f Frame
	require.NoError(t, json.Unmarshal(payloads[0], &f))
	assert.Equal(t, m.ID, f.MatchID)
	assert.Equal(t, LayoutScenario, f.Layout)
	assert.Equal(t, m.Snapshot().Checksum, f.Checksum)

	_, err = mm.Shoot(ctx, m.ID, NewVec2(0, -80))
	require.NoError(t, err)
	assert.Len(t, payloads, 2)
}

func TestManagerMatchControls(t *testing.T) {
	mm := newTestManager(0)
	ctx := context.Background()
	m, err := mm.CreateMatch(ctx, MatchOptions{Layout: LayoutScenario, Manual: true})
	require.NoError(t, err)

	frame, err := mm.PlaceCueBall(ctx, m.ID, NewVec2(300, 200))
	require.NoError(t, err)
	assert.Equal(t, 300.0, frame.Balls[0].X)

	_, err = mm.PlaceCueBall(ctx, m.ID, NewVec2(400, 350))
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	hit, err := mm.Shrink(ctx, m.ID, NewVec2(400, 350), 1)
	require.NoError(t, err)
	assert.Contains(t, hit, 1)

	_, err = mm.Shrink(ctx, m.ID, NewVec2(400, 350), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	frame, err = mm.SetAI(ctx, m.ID, true)
	require.NoError(t, err)
	assert.True(t, frame.AIEnabled)
	assert.True(t, frame.AITurn)

	_, err = mm.SetAI(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
