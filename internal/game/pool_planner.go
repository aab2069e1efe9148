package game

import (
	"math"

	"github.com/playmatatu/gravpool/internal/config"
	"go.uber.org/zap"
)

// ShotCandidate is a scored (target ball, pocket) pair.
type ShotCandidate struct {
	Target *Ball
	Pocket Pocket
	Score  float64
}

// ShotDecision describes a shot the planner submitted to the engine.
type ShotDecision struct {
	TargetID   int       `json:"target_id"`
	TargetType int       `json:"target_type"`
	PocketID   int       `json:"pocket_id"`
	Pocket     Vec2      `json:"pocket"`
	Score      float64   `json:"score"`
	Group      BallGroup `json:"group"`
	Force      Vec2      `json:"force"`   // requested by the planner
	Applied    Vec2      `json:"applied"` // after the engine's clamp
}

// ShotPlanner picks a target and pocket once the table has settled and
// strikes the cue ball through the physics engine.
type ShotPlanner struct {
	engine       *PhysicsEngine
	table        *Table
	tuning       config.PlannerTuning
	log          *zap.Logger
	group        BallGroup
	lastMoveTime float64
}

func NewShotPlanner(engine *PhysicsEngine, table *Table, tuning config.PlannerTuning, log *zap.Logger) *ShotPlanner {
	if log == nil {
		log = zap.NewNop()
	}
	p := &ShotPlanner{
		engine: engine,
		table:  table,
		tuning: tuning,
		log:    log,
		group:  GroupAny,
	}
	p.DetermineBallType()
	return p
}

// Group returns the group the agent is currently shooting at.
func (p *ShotPlanner) Group() BallGroup {
	return p.group
}

// SetGroup overrides the agent's group until the next DetermineBallType.
func (p *ShotPlanner) SetGroup(g BallGroup) {
	p.group = g
}

// BallsStopped reports whether every active ball's velocity components are
// within its stop threshold. The cue ball uses the tighter threshold.
func (p *ShotPlanner) BallsStopped() bool {
	cue := p.engine.CueBall()
	for _, b := range p.engine.Balls {
		if !b.Active() {
			continue
		}
		threshold := p.tuning.StopThreshold
		if b == cue {
			threshold = p.tuning.CueStopThreshold
		}
		if math.Abs(b.Velocity.X) > threshold || math.Abs(b.Velocity.Y) > threshold {
			return false
		}
	}
	return true
}

// Update runs a decision cycle when the cooldown has elapsed and the table
// is settled. elapsed is in seconds of simulated time.
func (p *ShotPlanner) Update(elapsed float64) (*ShotDecision, bool) {
	if elapsed-p.lastMoveTime < p.tuning.MoveCooldown || !p.BallsStopped() {
		return nil, false
	}
	decision, ok := p.MakeMove()
	p.lastMoveTime = elapsed
	return decision, ok
}

// MakeMove picks the best shot and applies it to the cue ball. It returns
// false when there is nothing legal to shoot at.
func (p *ShotPlanner) MakeMove() (*ShotDecision, bool) {
	p.DetermineBallType()

	best, ok := p.FindBestShot()
	if !ok {
		p.log.Debug("no legal target, waiting", zap.String("group", string(p.group)))
		return nil, false
	}

	force := p.CalculateForceToHitBall(best.Target, best.Pocket.Position, p.engine.Balls)
	if force.IsZero() {
		p.log.Debug("degenerate shot geometry, waiting",
			zap.Int("target", best.Target.ID), zap.Int("pocket", best.Pocket.ID))
		return nil, false
	}
	applied := p.engine.ApplyForceToCueBall(force)

	p.log.Info("agent shot",
		zap.Int("target", best.Target.ID),
		zap.Int("target_type", best.Target.BallType),
		zap.Int("pocket", best.Pocket.ID),
		zap.Float64("score", best.Score),
		zap.Float64("force", force.Magnitude()),
		zap.String("group", string(p.group)),
	)

	return &ShotDecision{
		TargetID:   best.Target.ID,
		TargetType: best.Target.BallType,
		PocketID:   best.Pocket.ID,
		Pocket:     best.Pocket.Position,
		Score:      best.Score,
		Group:      p.group,
		Force:      force,
		Applied:    applied,
	}, true
}

// DetermineBallType assigns the agent to whichever group has more balls
// left on the table. Equal counts leave the group undetermined.
func (p *ShotPlanner) DetermineBallType() BallGroup {
	solids, stripes := 0, 0
	for _, b := range p.engine.Balls {
		if !b.Active() {
			continue
		}
		switch b.Group() {
		case GroupSolids:
			solids++
		case GroupStripes:
			stripes++
		}
	}

	switch {
	case solids > stripes:
		p.group = GroupSolids
	case stripes > solids:
		p.group = GroupStripes
	default:
		p.group = GroupAny
	}
	return p.group
}

// IsValidTarget reports whether the agent may aim at the ball. The eight-ball
// becomes legal once no ball of the agent's group remains; while the group is
// undetermined that means no other object ball remains.
func (p *ShotPlanner) IsValidTarget(b *Ball) bool {
	if b == nil || !b.Active() || b.IsCueBall {
		return false
	}

	if b.BallType == EightBallType {
		for _, other := range p.engine.Balls {
			if !other.Active() || other.IsCueBall || other.BallType == EightBallType {
				continue
			}
			if p.group == GroupAny || other.Group() == p.group {
				return false
			}
		}
		return true
	}

	return p.group == GroupAny || b.Group() == p.group
}

// FindBestShot scores every legal target against every pocket and returns
// the lowest score. Ties keep the first pair in ball then pocket order.
func (p *ShotPlanner) FindBestShot() (ShotCandidate, bool) {
	var best ShotCandidate
	found := false
	if p.engine.CueBall() == nil {
		return best, false
	}

	for _, b := range p.engine.Balls {
		if !p.IsValidTarget(b) {
			continue
		}
		for _, pocket := range p.table.Pockets {
			score := p.EvaluateCompleteShot(b, pocket.Position)
			if !found || score < best.Score {
				best = ShotCandidate{Target: b, Pocket: pocket, Score: score}
				found = true
			}
		}
	}
	return best, found
}

// EvaluateCompleteShot scores a shot; lower is easier. The score adds both
// travel distances, the cut angle, a penalty per ball near the cue-target
// line, and a large penalty for an eight-ball that is not yet legal.
func (p *ShotPlanner) EvaluateCompleteShot(target *Ball, pocket Vec2) float64 {
	cue := p.engine.CueBall()

	toPocket := pocket.Minus(target.Position)
	toTarget := target.Position.Minus(cue.Position)

	score := toPocket.Magnitude() + toTarget.Magnitude()
	score += p.tuning.AngleWeight * headingDifference(toPocket, toTarget)

	for _, other := range p.engine.Balls {
		if other == target || other == cue || !other.Active() {
			continue
		}
		if distanceToLine(other.Position, cue.Position, target.Position) < p.tuning.ObstructionRadiusMultiplier*other.Radius {
			score += p.tuning.ObstructionPenalty
		}
	}

	if target.BallType == EightBallType && !p.IsValidTarget(target) {
		score += p.tuning.IllegalEightPenalty
	}
	return score
}

// CalculateForceToHitBall aims the cue ball at the ghost-ball position
// behind target. Balls clustered around the target push the ghost ball off
// the straight line so the target is driven away from the cluster. A zero
// vector is returned for degenerate geometry.
func (p *ShotPlanner) CalculateForceToHitBall(target *Ball, pocket Vec2, balls []*Ball) Vec2 {
	cue := p.engine.CueBall()
	if cue == nil {
		return Vec2{}
	}

	toPocket := pocket.Minus(target.Position)
	if toPocket.IsZero() {
		return Vec2{}
	}
	pocketDir := toPocket.Normalize()

	var nearby []*Ball
	limit := p.tuning.ClusterThresholdMultiplier * target.Radius
	for _, b := range balls {
		if b == target || b == cue || !b.Active() {
			continue
		}
		if b.Position.DistanceTo(target.Position) < limit {
			nearby = append(nearby, b)
		}
	}

	aimDir := pocketDir
	if len(nearby) > 0 {
		toCluster := centroid(nearby).Minus(target.Position)
		if pocketDir.Cross(toCluster) > 0 {
			aimDir = pocketDir.Rotate(-p.tuning.SpreadAngle)
		} else {
			aimDir = pocketDir.Rotate(p.tuning.SpreadAngle)
		}
	}

	ghost := target.Position.Minus(aimDir.Times(2 * target.Radius * p.tuning.OverlapFactor))
	toGhost := ghost.Minus(cue.Position)
	if toGhost.IsZero() {
		return Vec2{}
	}
	strikeDir := toGhost.Normalize()

	clusterFactor := 1 + p.tuning.ClusterForceStep*float64(len(nearby))
	angleFactor := 1 + p.tuning.AngleForceWeight*(1-math.Abs(strikeDir.Dot(pocketDir)))
	magnitude := math.Sqrt(toGhost.Magnitude()+toPocket.Magnitude()) * p.tuning.ForceScale * clusterFactor * angleFactor
	magnitude = clamp(magnitude, p.tuning.MinShotForce, p.tuning.MaxShotForce)

	return strikeDir.Times(magnitude)
}
