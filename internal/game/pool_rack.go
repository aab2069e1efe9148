package game

import (
	"errors"
	"fmt"

	"github.com/playmatatu/gravpool/internal/config"
)

const (
	LayoutRack     = "rack"
	LayoutScenario = "scenario"

	rackRows        = 5
	rackRowSpacing  = 0.866 // cos(30°)
	cueRackDistance = 200
)

var ErrUnknownLayout = errors.New("unknown layout")

// BuildLayout returns the ball specs for a named layout, cue ball first.
// count only applies to the rack layout; zero means DefaultRackSize.
func BuildLayout(name string, count int, tuning config.PhysicsTuning) ([]BallSpec, error) {
	switch name {
	case "", LayoutRack:
		if count == 0 {
			count = DefaultRackSize
		}
		return RackLayout(count, tuning)
	case LayoutScenario:
		return ScenarioLayout(tuning), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}

// RackLayout places count object balls in a triangle pointing at the cue
// ball. The apex sits at the table centre and each row steps one
// diameter·cos(30°) further right, centred vertically on the apex. The cue
// ball is 200 px left of the apex.
func RackLayout(count int, tuning config.PhysicsTuning) ([]BallSpec, error) {
	maxBalls := rackRows * (rackRows + 1) / 2
	if count < 1 || count > maxBalls {
		return nil, fmt.Errorf("%w: rack size must be between 1 and %d, got %d", ErrInvalidInput, maxBalls, count)
	}

	apex := NewVec2(tuning.TableWidth/2, tuning.TableHeight/2)
	diameter := tuning.BallRadius * 2

	specs := make([]BallSpec, 0, count+1)
	specs = append(specs, newSpec(CueBallType, NewVec2(apex.X-cueRackDistance, apex.Y), tuning))

	ballType := 1
	for row := 0; row < rackRows && ballType <= count; row++ {
		inRow := row + 1
		rowWidth := float64(inRow-1) * diameter
		for i := 0; i < inRow && ballType <= count; i++ {
			pos := NewVec2(
				apex.X+float64(row)*diameter*rackRowSpacing,
				apex.Y+float64(i)*diameter-rowWidth/2,
			)
			specs = append(specs, newSpec(ballType, pos, tuning))
			ballType++
		}
	}
	return specs, nil
}

// ScenarioLayout is a fixed ten-ball layout with a single ball lined up on
// the middle-top pocket. Striking the cue ball straight up pots ball 1 and
// leaves every other ball untouched.
func ScenarioLayout(tuning config.PhysicsTuning) []BallSpec {
	positions := []Vec2{
		NewVec2(400, 500), // cue
		NewVec2(400, 350),
		NewVec2(100, 450),
		NewVec2(150, 450),
		NewVec2(200, 450),
		NewVec2(250, 450),
		NewVec2(550, 450),
		NewVec2(600, 450),
		NewVec2(650, 450),
		NewVec2(700, 450),
		NewVec2(700, 300),
	}
	specs := make([]BallSpec, len(positions))
	for i, pos := range positions {
		specs[i] = newSpec(i, pos, tuning)
	}
	return specs
}

func newSpec(ballType int, pos Vec2, tuning config.PhysicsTuning) BallSpec {
	return BallSpec{
		BallType:      ballType,
		Position:      pos,
		Radius:        tuning.BallRadius,
		MassPerRadius: tuning.MassPerRadius,
		EightGravity:  tuning.EightBallGravityMultiplier,
	}
}
