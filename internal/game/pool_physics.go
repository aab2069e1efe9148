package game

import (
	"math"

	"github.com/playmatatu/gravpool/internal/config"
	"go.uber.org/zap"
)

// CollisionEvent records a contact resolved during a tick.
type CollisionEvent struct {
	Type     string  `json:"type"` // "ball" or "wall"
	BallID   int     `json:"ball_id"`
	TargetID int     `json:"target_id"` // other ball ID, -1 for walls
	Speed    float64 `json:"speed"`     // closing speed along the normal
	Tick     int64   `json:"tick"`
}

// PhysicsEngine advances a set of balls one discrete tick at a time.
// It is not safe for concurrent use; the owning match serializes access.
type PhysicsEngine struct {
	Balls   []*Ball
	Table   *Table
	Events  []CollisionEvent // contacts from the most recent Update
	cueBall *Ball
	tuning  config.PhysicsTuning
	log     *zap.Logger
}

// NewPhysicsEngine creates an empty engine bounded by the table.
func NewPhysicsEngine(table *Table, tuning config.PhysicsTuning, log *zap.Logger) *PhysicsEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &PhysicsEngine{
		Table:  table,
		tuning: tuning,
		log:    log,
	}
}

// AddBall registers a body. The first ball flagged IsCueBall becomes the
// target of ApplyForceToCueBall.
func (pe *PhysicsEngine) AddBall(b *Ball) {
	pe.Balls = append(pe.Balls, b)
	if b.IsCueBall && pe.cueBall == nil {
		pe.cueBall = b
	}
}

// CueBall returns the registered cue ball, falling back to the first ball
// when none was flagged.
func (pe *PhysicsEngine) CueBall() *Ball {
	if pe.cueBall != nil {
		return pe.cueBall
	}
	if len(pe.Balls) > 0 {
		return pe.Balls[0]
	}
	return nil
}

// ApplyForceToCueBall clamps the force to MaxForce and applies it to the cue
// ball. It returns the force actually applied; with no balls registered it
// logs and returns the zero vector.
func (pe *PhysicsEngine) ApplyForceToCueBall(force Vec2) Vec2 {
	if len(pe.Balls) == 0 {
		pe.log.Warn("no balls in the physics engine, force ignored",
			zap.Float64("fx", force.X), zap.Float64("fy", force.Y))
		return Vec2{}
	}

	if magnitude := force.Magnitude(); magnitude > pe.tuning.MaxForce {
		force = force.Times(pe.tuning.MaxForce / magnitude)
	}

	pe.CueBall().ApplyForce(force)
	return force
}

// Update advances the simulation by one tick. The passes run in a fixed
// order: gravity, ball collisions, walls, then integration with friction.
func (pe *PhysicsEngine) Update(tick int64) {
	pe.Events = nil

	if pe.tuning.GravityEnabled {
		pe.applyGravity(tick)
	}
	pe.resolveCollisions(tick)
	pe.resolveWallCollisions(tick)
	pe.integrate()
}

// gravitySettled reports whether a ball's last contact is outside the lag window.
func (pe *PhysicsEngine) gravitySettled(b *Ball, tick int64) bool {
	return b.LastCollisionTick == NoCollision || tick-b.LastCollisionTick > pe.tuning.GravityLagWindow
}

func (pe *PhysicsEngine) applyGravity(tick int64) {
	for i := 0; i < len(pe.Balls); i++ {
		a := pe.Balls[i]
		if a.IsSunk || !pe.gravitySettled(a, tick) {
			continue
		}
		for j := i + 1; j < len(pe.Balls); j++ {
			b := pe.Balls[j]
			if b.IsSunk || !pe.gravitySettled(b, tick) {
				continue
			}

			delta := b.Position.Minus(a.Position)
			distSq := delta.MagnitudeSquared()
			if distSq == 0 {
				continue
			}
			dist := math.Sqrt(distSq)

			multiplier := math.Max(a.GravityMultiplier, b.GravityMultiplier)
			magnitude := pe.tuning.GravitationalConstant * a.Mass * b.Mass * multiplier / distSq
			pull := delta.Times(magnitude / dist)

			a.ApplyForce(pull)
			b.ApplyForce(pull.Invert())
		}
	}
}

func (pe *PhysicsEngine) resolveCollisions(tick int64) {
	for i := 0; i < len(pe.Balls); i++ {
		a := pe.Balls[i]
		if a.IsSunk {
			continue
		}
		for j := i + 1; j < len(pe.Balls); j++ {
			b := pe.Balls[j]
			if b.IsSunk {
				continue
			}
			pe.resolveBallBall(a, b, tick)
		}
	}
}

// resolveBallBall separates an overlapping pair and exchanges momentum along
// the contact normal. Touching pairs (distance == sum of radii) are left alone.
// Coincident centres have no normal; they are pushed apart along +x with no
// impulse and no event.
func (pe *PhysicsEngine) resolveBallBall(a, b *Ball, tick int64) {
	delta := a.Position.Minus(b.Position)
	dist := delta.Magnitude()
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return
	}
	if dist == 0 {
		half := minDist / 2
		a.Position.X += half
		b.Position.X -= half
		a.LastCollisionTick = tick
		b.LastCollisionTick = tick
		pe.log.Debug("separated coincident balls", zap.Int("ball_id", a.ID), zap.Int("target_id", b.ID))
		return
	}

	// n points from b towards a
	n := delta.Times(1 / dist)
	half := (minDist - dist) / 2
	a.Position = a.Position.Plus(n.Times(half))
	b.Position = b.Position.Minus(n.Times(half))

	velocityAlongNormal := a.Velocity.Minus(b.Velocity).Dot(n)
	if velocityAlongNormal < 0 {
		impulse := pe.tuning.Restitution * 2 * velocityAlongNormal / (a.Mass + b.Mass)
		a.Velocity = a.Velocity.Minus(n.Times(impulse * b.Mass))
		b.Velocity = b.Velocity.Plus(n.Times(impulse * a.Mass))
	}

	a.LastCollisionTick = tick
	b.LastCollisionTick = tick

	pe.Events = append(pe.Events, CollisionEvent{
		Type:     "ball",
		BallID:   a.ID,
		TargetID: b.ID,
		Speed:    math.Abs(velocityAlongNormal),
		Tick:     tick,
	})
}

// resolveWallCollisions keeps every ball's extent inside the table. A ball
// that is outside, or would leave the table with this tick's displacement, is
// clamped one margin inside and its outward velocity component is reflected.
func (pe *PhysicsEngine) resolveWallCollisions(tick int64) {
	w, h := pe.Table.Width, pe.Table.Height
	margin := pe.tuning.WallMargin

	for _, b := range pe.Balls {
		if b.IsSunk {
			continue
		}
		r := b.Radius
		next := b.Position.Plus(b.Velocity)
		hitSpeed := 0.0

		// Left and right walls
		if b.Position.X-r < 0 || next.X-r < 0 {
			b.Position.X = math.Max(b.Position.X, r+margin)
			if b.Velocity.X < 0 {
				hitSpeed = math.Max(hitSpeed, -b.Velocity.X)
				b.Velocity.X = -b.Velocity.X
			}
		} else if b.Position.X+r > w || next.X+r > w {
			b.Position.X = math.Min(b.Position.X, w-r-margin)
			if b.Velocity.X > 0 {
				hitSpeed = math.Max(hitSpeed, b.Velocity.X)
				b.Velocity.X = -b.Velocity.X
			}
		}

		// Top and bottom walls
		if b.Position.Y-r < 0 || next.Y-r < 0 {
			b.Position.Y = math.Max(b.Position.Y, r+margin)
			if b.Velocity.Y < 0 {
				hitSpeed = math.Max(hitSpeed, -b.Velocity.Y)
				b.Velocity.Y = -b.Velocity.Y
			}
		} else if b.Position.Y+r > h || next.Y+r > h {
			b.Position.Y = math.Min(b.Position.Y, h-r-margin)
			if b.Velocity.Y > 0 {
				hitSpeed = math.Max(hitSpeed, b.Velocity.Y)
				b.Velocity.Y = -b.Velocity.Y
			}
		}

		if hitSpeed > 0 {
			pe.Events = append(pe.Events, CollisionEvent{
				Type:     "wall",
				BallID:   b.ID,
				TargetID: -1,
				Speed:    hitSpeed,
				Tick:     tick,
			})
		}
	}
}

// integrate moves every active ball by its velocity, then applies rolling
// friction so this tick's impulses show up in the next tick's displacement.
// A displacement wider than the table is cut short at the far wall.
func (pe *PhysicsEngine) integrate() {
	margin := pe.tuning.WallMargin
	for _, b := range pe.Balls {
		if b.IsSunk {
			continue
		}
		b.Position = b.Position.Plus(b.Velocity)
		b.Position.X = clamp(b.Position.X, b.Radius+margin, pe.Table.Width-b.Radius-margin)
		b.Position.Y = clamp(b.Position.Y, b.Radius+margin, pe.Table.Height-b.Radius-margin)
		b.ApplyFriction(pe.tuning.FrictionCoefficient)
	}
}

// AllStopped returns true if every active ball is slower than threshold.
func (pe *PhysicsEngine) AllStopped(threshold float64) bool {
	for _, b := range pe.Balls {
		if b.Active() && b.Speed() > threshold {
			return false
		}
	}
	return true
}

// ActiveBalls returns the balls that have not been sunk.
func (pe *PhysicsEngine) ActiveBalls() []*Ball {
	out := make([]*Ball, 0, len(pe.Balls))
	for _, b := range pe.Balls {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out
}
