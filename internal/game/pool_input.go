package game

import (
	"math"

	"github.com/playmatatu/gravpool/internal/config"
)

// DragForce converts a pointer press/release pair into a cue force. The
// force points from the release back towards the press, scaled by
// DragScale. It returns false when both components fall inside the dead
// zone, in which case no shot should be taken.
func DragForce(press, release Vec2, tuning config.InputTuning) (Vec2, bool) {
	force := release.Minus(press).Times(-tuning.DragScale)
	if math.Abs(force.X) <= tuning.DragDeadZone && math.Abs(force.Y) <= tuning.DragDeadZone {
		return Vec2{}, false
	}
	return force, true
}
