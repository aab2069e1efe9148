package game

import (
	"fmt"

	"github.com/playmatatu/gravpool/internal/config"
)

// ShrinkRay is a power-up that shrinks every ball near the point it is
// fired at. Mass follows the new radius.
type ShrinkRay struct {
	Power  float64
	tuning config.ShrinkTuning
}

func NewShrinkRay(power float64, tuning config.ShrinkTuning) (*ShrinkRay, error) {
	if power <= 0 {
		return nil, fmt.Errorf("%w: shrink ray power must be positive, got %v", ErrInvalidInput, power)
	}
	return &ShrinkRay{Power: power, tuning: tuning}, nil
}

// Range is the activation radius around the target point.
func (s *ShrinkRay) Range() float64 {
	return s.Power * s.tuning.RangePerPower
}

// Activate shrinks the active balls strictly inside Range of at and returns
// their IDs.
func (s *ShrinkRay) Activate(at Vec2, balls []*Ball, massPerRadius float64) []int {
	var hit []int
	for _, b := range balls {
		if !b.Active() || b.Position.DistanceTo(at) >= s.Range() {
			continue
		}
		b.Resize(b.Radius*s.tuning.Factor, massPerRadius)
		hit = append(hit, b.ID)
	}
	return hit
}
