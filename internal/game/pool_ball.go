package game

import "fmt"

// Ball is a single body on the table. Fields are mutated in place by the
// physics engine (Position, Velocity, LastCollisionTick) and by the sink
// pass (IsSunk).
type Ball struct {
	ID                int     `json:"id"`
	IsCueBall         bool    `json:"is_cue_ball"`
	BallType          int     `json:"ball_type"`
	Position          Vec2    `json:"position"`
	Velocity          Vec2    `json:"velocity"`
	Mass              float64 `json:"mass"`
	Radius            float64 `json:"radius"`
	IsSunk            bool    `json:"is_sunk"`
	LastCollisionTick int64   `json:"last_collision_tick"`
	GravityMultiplier float64 `json:"gravity_multiplier"`
}

// BallSpec describes how to build a ball.
type BallSpec struct {
	BallType      int
	Position      Vec2
	Radius        float64
	MassPerRadius float64
	// EightGravity is the gravity multiplier given to the eight-ball variant.
	EightGravity float64
}

// NewBall builds a ball from its type tag. Mass follows radius
// (mass = MassPerRadius·radius) and the eight-ball carries the stronger
// gravitational pull.
func NewBall(id int, spec BallSpec) (*Ball, error) {
	if spec.BallType < CueBallType || spec.BallType > MaxBallType {
		return nil, fmt.Errorf("invalid ball type: %d", spec.BallType)
	}
	if spec.Radius <= 0 || spec.MassPerRadius <= 0 {
		return nil, fmt.Errorf("ball %d: radius and mass must be positive", id)
	}

	b := &Ball{
		ID:                id,
		IsCueBall:         spec.BallType == CueBallType,
		BallType:          spec.BallType,
		Position:          spec.Position,
		LastCollisionTick: NoCollision,
		GravityMultiplier: 1,
	}
	b.Resize(spec.Radius, spec.MassPerRadius)
	if spec.BallType == EightBallType && spec.EightGravity > 0 {
		b.GravityMultiplier = spec.EightGravity
	}
	return b, nil
}

// Resize sets the radius and recomputes mass from it.
func (b *Ball) Resize(radius, massPerRadius float64) {
	b.Radius = radius
	b.Mass = massPerRadius * radius
}

// ApplyForce adds force/mass to the velocity.
func (b *Ball) ApplyForce(force Vec2) {
	b.Velocity = b.Velocity.Plus(force.Times(1 / b.Mass))
}

// ApplyFriction scales the velocity by (1 - coefficient).
func (b *Ball) ApplyFriction(coefficient float64) {
	b.Velocity = b.Velocity.Times(1 - coefficient)
}

func (b *Ball) GetPosition() Vec2 {
	return b.Position
}

func (b *Ball) SetPosition(x, y float64) {
	b.Position = Vec2{X: x, Y: y}
}

func (b *Ball) Speed() float64 {
	return b.Velocity.Magnitude()
}

// Group returns the 8-ball group this ball belongs to.
func (b *Ball) Group() BallGroup {
	return ballGroup(b.BallType)
}

// Active reports whether the ball still takes part in the simulation.
func (b *Ball) Active() bool {
	return !b.IsSunk
}
