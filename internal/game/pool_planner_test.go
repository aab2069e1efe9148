package game

import (
	"math"
	"testing"

	"github.com/playmatatu/gravpool/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type placement struct {
	ballType int
	x, y     float64
}

func newTestPlanner(t *testing.T, tuning *config.Tuning, balls ...placement) (*PhysicsEngine, *ShotPlanner) {
	t.Helper()
	pe := newTestEngine(tuning.Physics)
	for _, b := range balls {
		placeBall(t, pe, b.ballType, b.x, b.y)
	}
	return pe, NewShotPlanner(pe, pe.Table, tuning.Planner, zap.NewNop())
}

func TestBallsStoppedThresholds(t *testing.T) {
	tests := []struct {
		name     string
		cueVel   Vec2
		ballVel  Vec2
		expected bool
	}{
		{"all still", Vec2{}, Vec2{}, true},
		{"object creeping", Vec2{}, NewVec2(0.2, -0.2), true},
		{"object at threshold", Vec2{}, NewVec2(0.3, -0.3), true},
		{"object rolling", Vec2{}, NewVec2(0, 0.4), false},
		{"cue creeping", NewVec2(0.05, 0), Vec2{}, true},
		{"cue at threshold", NewVec2(0, 0.1), Vec2{}, true},
		{"cue rolling", NewVec2(0.2, 0), Vec2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe, planner := newTestPlanner(t, config.DefaultTuning(),
				placement{CueBallType, 200, 300}, placement{1, 500, 300})
			pe.Balls[0].Velocity = tt.cueVel
			pe.Balls[1].Velocity = tt.ballVel
			assert.Equal(t, tt.expected, planner.BallsStopped())
		})
	}
}

func TestBallsStoppedIgnoresSunkBalls(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 200, 300}, placement{1, 500, 300})
	pe.Balls[1].Velocity = NewVec2(5, 0)
	pe.Balls[1].IsSunk = true

	assert.True(t, planner.BallsStopped())
}

func TestDetermineBallType(t *testing.T) {
	tests := []struct {
		name  string
		types []int
		sunk  map[int]bool
		want  BallGroup
	}{
		{"more solids", []int{1, 2, 3, 9}, nil, GroupSolids},
		{"more stripes", []int{1, 9, 10}, nil, GroupStripes},
		{"equal", []int{1, 2, 9, 10, 8}, nil, GroupAny},
		{"sunk balls do not count", []int{1, 2, 3, 9}, map[int]bool{1: true, 2: true}, GroupAny},
		{"only the eight", []int{8}, nil, GroupAny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balls := []placement{{CueBallType, 100, 100}}
			for i, bt := range tt.types {
				balls = append(balls, placement{bt, 200 + float64(i)*40, 300})
			}
			pe, planner := newTestPlanner(t, config.DefaultTuning(), balls...)
			for i := range tt.types {
				pe.Balls[i+1].IsSunk = tt.sunk[i]
			}
			assert.Equal(t, tt.want, planner.DetermineBallType())
			assert.Equal(t, tt.want, planner.Group())
		})
	}
}

func TestEightBallLegality(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 100, 300},
		placement{EightBallType, 400, 300},
		placement{9, 600, 200},
	)
	eight := pe.Balls[1]

	planner.SetGroup(GroupSolids)
	assert.True(t, planner.IsValidTarget(eight), "no solids left")

	solid := placeBall(t, pe, 3, 600, 400)
	assert.False(t, planner.IsValidTarget(eight), "a solid remains")

	solid.IsSunk = true
	assert.True(t, planner.IsValidTarget(eight), "sunk solid does not count")
}

func TestEightBallLegalityWithUndeterminedGroup(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 100, 300},
		placement{EightBallType, 400, 300},
	)
	eight := pe.Balls[1]

	planner.SetGroup(GroupAny)
	assert.True(t, planner.IsValidTarget(eight))

	placeBall(t, pe, 12, 600, 400)
	assert.False(t, planner.IsValidTarget(eight))
}

func TestIsValidTargetForObjectBalls(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 100, 300},
		placement{2, 300, 300},
		placement{11, 500, 300},
	)
	cue, solid, stripe := pe.Balls[0], pe.Balls[1], pe.Balls[2]

	planner.SetGroup(GroupSolids)
	assert.True(t, planner.IsValidTarget(solid))
	assert.False(t, planner.IsValidTarget(stripe))
	assert.False(t, planner.IsValidTarget(cue))

	planner.SetGroup(GroupAny)
	assert.True(t, planner.IsValidTarget(stripe))

	stripe.IsSunk = true
	assert.False(t, planner.IsValidTarget(stripe))
	assert.False(t, planner.IsValidTarget(nil))
}

func TestFindBestShotStraightIntoMiddlePocket(t *testing.T) {
	_, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 400, 400},
		placement{1, 400, 200},
	)

	best, ok := planner.FindBestShot()

	require.True(t, ok)
	assert.Equal(t, 1, best.Target.ID)
	assert.Equal(t, 4, best.Pocket.ID, "middle-top pocket")
	assert.InDelta(t, 350.0, best.Score, 1e-9)
}

func TestFindBestShotIsDeterministic(t *testing.T) {
	_, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 200, 300},
		placement{1, 500, 300},
		placement{9, 526, 285},
		placement{2, 526, 315},
		placement{8, 552, 300},
		placement{10, 552, 270},
		placement{3, 552, 330},
	)

	first, ok := planner.FindBestShot()
	require.True(t, ok)
	second, ok := planner.FindBestShot()
	require.True(t, ok)

	assert.Same(t, first.Target, second.Target)
	assert.Equal(t, first.Pocket, second.Pocket)
	assert.Equal(t, first.Score, second.Score)
}

func TestNoLegalTargetIsIdle(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(), placement{CueBallType, 400, 300})

	_, ok := planner.FindBestShot()
	assert.False(t, ok)

	decision, ok := planner.MakeMove()
	assert.False(t, ok)
	assert.Nil(t, decision)
	assert.True(t, pe.Balls[0].Velocity.IsZero())
}

func TestEmptyTableIsIdle(t *testing.T) {
	_, planner := newTestPlanner(t, config.DefaultTuning())

	_, ok := planner.MakeMove()
	assert.False(t, ok)
}

func TestObstructionPenalty(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 200, 300},
		placement{1, 500, 300},
		placement{2, 350, 310},
	)
	target, blocker := pe.Balls[1], pe.Balls[2]
	pocket := pe.Table.Pockets[1].Position

	blocked := planner.EvaluateCompleteShot(target, pocket)
	blocker.IsSunk = true
	clear := planner.EvaluateCompleteShot(target, pocket)

	assert.InDelta(t, 100.0, blocked-clear, 1e-9)
}

func TestIllegalEightBallPenalty(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 200, 300},
		placement{EightBallType, 500, 300},
		placement{1, 300, 500},
	)
	eight, solid := pe.Balls[1], pe.Balls[2]
	pocket := pe.Table.Pockets[3].Position
	planner.SetGroup(GroupSolids)

	illegal := planner.EvaluateCompleteShot(eight, pocket)
	solid.IsSunk = true
	legal := planner.EvaluateCompleteShot(eight, pocket)

	assert.InDelta(t, 1000.0, illegal-legal, 1e-9)
}

func TestCalculateForceStraightShot(t *testing.T) {
	tests := []struct {
		name       string
		forceScale float64
		want       float64
	}{
		{"clamped high", 300, 1000},
		{"in range", 10, math.Sqrt(173+250) * 10},
		{"clamped low", 1, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := config.DefaultTuning()
			tuning.Planner.ForceScale = tt.forceScale
			pe, planner := newTestPlanner(t, tuning,
				placement{CueBallType, 400, 500},
				placement{1, 400, 300},
			)

			force := planner.CalculateForceToHitBall(pe.Balls[1], NewVec2(400, 50), pe.Balls)

			assert.InDelta(t, tt.want, force.Magnitude(), 1e-9)
			assert.InDelta(t, 0.0, force.X, 1e-9)
			assert.Less(t, force.Y, 0.0)
		})
	}
}

func TestCalculateForceSteersAwayFromCluster(t *testing.T) {
	tests := []struct {
		name      string
		neighbour Vec2
		wantRight bool
	}{
		{"cluster on the right", NewVec2(430, 300), true},
		{"cluster on the left", NewVec2(370, 300), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe, planner := newTestPlanner(t, config.DefaultTuning(),
				placement{CueBallType, 400, 500},
				placement{1, 400, 300},
				placement{2, tt.neighbour.X, tt.neighbour.Y},
			)

			force := planner.CalculateForceToHitBall(pe.Balls[1], NewVec2(400, 50), pe.Balls)

			// The ghost ball sits on the cluster side so the target leaves away from it.
			assert.Equal(t, tt.wantRight, force.X > 0, "force %v", force)
			assert.Less(t, force.Y, 0.0)
			assert.InDelta(t, 1000.0, force.Magnitude(), 1e-9)
		})
	}
}

func TestCalculateForceDegenerateGeometry(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 400, 500},
		placement{1, 400, 300},
	)

	force := planner.CalculateForceToHitBall(pe.Balls[1], NewVec2(400, 300), pe.Balls)

	assert.True(t, force.IsZero())
}

func TestUpdateWaitsForCooldownAndSettledTable(t *testing.T) {
	pe, planner := newTestPlanner(t, config.DefaultTuning(),
		placement{CueBallType, 400, 500},
		placement{1, 400, 300},
	)
	cue := pe.Balls[0]

	_, ok := planner.Update(0.5)
	assert.False(t, ok, "cooldown not elapsed")
	assert.True(t, cue.Velocity.IsZero())

	decision, ok := planner.Update(1.0)
	require.True(t, ok)
	assert.Equal(t, 1, decision.TargetID)
	assert.Equal(t, 4, decision.PocketID)
	assert.Equal(t, GroupSolids, decision.Group)
	assert.InDelta(t, 100.0, decision.Applied.Magnitude(), 1e-9)
	assert.InDelta(t, 100/cue.Mass, cue.Speed(), 1e-9)
	assert.Less(t, cue.Velocity.Y, 0.0)

	_, ok = planner.Update(1.5)
	assert.False(t, ok, "cooldown not elapsed")

	_, ok = planner.Update(3)
	assert.False(t, ok, "cue ball still rolling")
}
