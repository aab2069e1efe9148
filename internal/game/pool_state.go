package game

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/playmatatu/gravpool/internal/config"
	"go.uber.org/zap"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchFinished    = errors.New("match is finished")
	ErrAgentTurn        = errors.New("it is the agent's turn")
	ErrBallsMoving      = errors.New("balls are still moving")
	ErrInvalidPlacement = errors.New("invalid cue ball placement")
	ErrInvalidInput     = errors.New("invalid input")
)

const (
	ShooterHuman = "human"
	ShooterAgent = "agent"
)

// MatchOptions configures a new match.
type MatchOptions struct {
	Layout    string `json:"layout"`
	RackSize  int    `json:"rack_size"`
	AIEnabled bool   `json:"ai_enabled"`
	Manual    bool   `json:"manual"`            // advanced only by explicit steps
	Gravity   *bool  `json:"gravity,omitempty"` // overrides the tuning default
}

// BallState is a ball's serialized state within a frame.
type BallState struct {
	ID     int     `json:"id"`
	Type   int     `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
	Sunk   bool    `json:"sunk"`
}

// Frame is a point-in-time view of a match, streamed to spectators.
type Frame struct {
	MatchID   string           `json:"match_id"`
	Layout    string           `json:"layout"`
	Tick      int64            `json:"tick"`
	Elapsed   float64          `json:"elapsed"`
	Status    GameStatus       `json:"status"`
	AIEnabled bool             `json:"ai_enabled"`
	AITurn    bool             `json:"ai_turn"`
	Group     BallGroup        `json:"group"`
	Balls     []BallState      `json:"balls"`
	Events    []CollisionEvent `json:"events,omitempty"`
	Sunk      []SinkEvent      `json:"sunk"`
	SunkCount int              `json:"sunk_count"`
	Remaining int              `json:"remaining"`
	Score     int              `json:"score"`
	Shots     int              `json:"shots"`
	Checksum  uint64           `json:"checksum,string"`
}

// Shot is a force submitted to the cue ball by a human or by the agent.
type Shot struct {
	MatchID  string        `json:"match_id"`
	Number   int           `json:"number"`
	Tick     int64         `json:"tick"`
	Shooter  string        `json:"shooter"`
	Force    Vec2          `json:"force"`
	Applied  Vec2          `json:"applied"`
	Decision *ShotDecision `json:"decision,omitempty"`
	TakenAt  time.Time     `json:"taken_at"`
}

// StepResult collects what happened while advancing a match.
type StepResult struct {
	Ticks  int              `json:"ticks"`
	Shots  []Shot           `json:"shots,omitempty"`
	Sinks  []SinkEvent      `json:"sinks,omitempty"`
	Events []CollisionEvent `json:"events,omitempty"`
}

// Match drives one table: the physics engine, sink detection and the
// optional agent, advanced one tick at a time.
type Match struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	tuning      config.Tuning
	tickRate    int
	layout      string
	manual      bool
	table       *Table
	engine      *PhysicsEngine
	planner     *ShotPlanner
	tick        int64
	status      GameStatus
	aiEnabled   bool
	aiTurn      bool
	sunk        []SinkEvent
	shots       int
	resultSaved bool
	log         *zap.Logger
}

// NewMatch builds a match from a named layout.
func NewMatch(id string, opts MatchOptions, tuning *config.Tuning, tickRate int, log *zap.Logger) (*Match, error) {
	if tickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", tickRate)
	}
	if log == nil {
		log = zap.NewNop()
	}

	t := *tuning
	if opts.Gravity != nil {
		t.Physics.GravityEnabled = *opts.Gravity
	}
	layout := opts.Layout
	if layout == "" {
		layout = LayoutRack
	}

	specs, err := BuildLayout(layout, opts.RackSize, t.Physics)
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("match_id", id))
	table := NewTable(t.Physics.TableWidth, t.Physics.TableHeight, t.Physics.PocketRadius)
	engine := NewPhysicsEngine(table, t.Physics, log.Named("physics"))
	for i, spec := range specs {
		b, err := NewBall(i, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to build layout %s: %w", layout, err)
		}
		engine.AddBall(b)
	}

	m := &Match{
		ID:        id,
		CreatedAt: time.Now(),
		tuning:    t,
		tickRate:  tickRate,
		layout:    layout,
		manual:    opts.Manual,
		table:     table,
		engine:    engine,
		planner:   NewShotPlanner(engine, table, t.Planner, log.Named("planner")),
		status:    StatusWaiting,
		aiEnabled: opts.AIEnabled,
		aiTurn:    opts.AIEnabled,
		log:       log,
	}

	log.Info("match created",
		zap.String("layout", layout),
		zap.Int("balls", len(specs)),
		zap.Bool("gravity", t.Physics.GravityEnabled),
		zap.Bool("ai", opts.AIEnabled),
	)
	return m, nil
}

// Step advances the match by up to n ticks, stopping early if it completes.
func (m *Match) Step(n int) (StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res StepResult
	if m.status.Finished() {
		return res, ErrMatchFinished
	}
	for i := 0; i < n && !m.status.Finished(); i++ {
		m.advance(&res)
	}
	return res, nil
}

// advance runs one tick: physics, sink detection, then the agent.
func (m *Match) advance(res *StepResult) {
	m.tick++
	m.engine.Update(m.tick)
	res.Events = append(res.Events, m.engine.Events...)

	if sinks := m.table.UpdateSunk(m.engine.Balls, m.tick); len(sinks) > 0 {
		m.sunk = append(m.sunk, sinks...)
		res.Sinks = append(res.Sinks, sinks...)
		for _, s := range sinks {
			m.log.Info("ball sunk",
				zap.Int("ball", s.BallID),
				zap.Int("type", s.BallType),
				zap.Int("pocket", s.PocketID),
				zap.Int64("tick", s.Tick),
			)
		}
	}

	if m.aiEnabled && m.aiTurn {
		if decision, ok := m.planner.Update(m.elapsed()); ok {
			res.Shots = append(res.Shots, m.recordShot(ShooterAgent, decision.Force, decision.Applied, decision))
			m.aiTurn = false
		}
	}

	m.refreshStatus()
	res.Ticks++
}

// Shoot applies a human shot. When the agent is enabled the turn passes to it.
func (m *Match) Shoot(force Vec2) (Shot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.Finished() {
		return Shot{}, ErrMatchFinished
	}
	if m.aiEnabled && m.aiTurn {
		return Shot{}, ErrAgentTurn
	}

	applied := m.engine.ApplyForceToCueBall(force)
	shot := m.recordShot(ShooterHuman, force, applied, nil)
	if m.aiEnabled {
		m.aiTurn = true
	}
	m.refreshStatus()
	return shot, nil
}

// Drag converts a press/release gesture into a shot. It returns false
// without shooting when the gesture is inside the dead zone.
func (m *Match) Drag(press, release Vec2) (Shot, bool, error) {
	force, ok := DragForce(press, release, m.tuning.Input)
	if !ok {
		return Shot{}, false, nil
	}
	shot, err := m.Shoot(force)
	if err != nil {
		return Shot{}, false, err
	}
	return shot, true, nil
}

// PlaceCueBall moves the cue ball while the table is settled. The cue ball
// must lie fully on the table and must not overlap another ball.
func (m *Match) PlaceCueBall(pos Vec2) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.Finished() {
		return ErrMatchFinished
	}
	if m.aiEnabled && m.aiTurn {
		return ErrAgentTurn
	}
	if !m.planner.BallsStopped() {
		return ErrBallsMoving
	}

	cue := m.engine.CueBall()
	r := cue.Radius
	if pos.X-r < 0 || pos.X+r > m.table.Width || pos.Y-r < 0 || pos.Y+r > m.table.Height {
		return fmt.Errorf("%w: (%.1f, %.1f) is off the table", ErrInvalidPlacement, pos.X, pos.Y)
	}
	for _, b := range m.engine.Balls {
		if b == cue || !b.Active() {
			continue
		}
		if b.Position.DistanceTo(pos) < r+b.Radius {
			return fmt.Errorf("%w: overlaps ball %d", ErrInvalidPlacement, b.ID)
		}
	}

	cue.SetPosition(pos.X, pos.Y)
	cue.Velocity = Vec2{}
	return nil
}

// SetAI enables or disables the agent. Enabling it hands it the turn.
func (m *Match) SetAI(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aiEnabled = enabled
	m.aiTurn = enabled
	m.log.Info("agent toggled", zap.Bool("enabled", enabled))
}

// Shrink fires a shrink ray at a point and returns the IDs of the balls hit.
func (m *Match) Shrink(at Vec2, power float64) ([]int, error) {
	ray, err := NewShrinkRay(power, m.tuning.Shrink)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.Finished() {
		return nil, ErrMatchFinished
	}
	hit := ray.Activate(at, m.engine.Balls, m.tuning.Physics.MassPerRadius)
	m.log.Debug("shrink ray fired", zap.Float64("power", power), zap.Ints("hit", hit))
	return hit, nil
}

// Cancel stops the match; further input is rejected.
func (m *Match) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusCancelled
}

func (m *Match) Status() GameStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Manual reports whether the match is only advanced by explicit steps.
func (m *Match) Manual() bool {
	return m.manual
}

func (m *Match) Layout() string {
	return m.layout
}

// claimResult returns true exactly once after the match has completed.
func (m *Match) claimResult() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusCompleted || m.resultSaved {
		return false
	}
	m.resultSaved = true
	return true
}

func (m *Match) Tick() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tick
}

// Snapshot returns the current frame.
func (m *Match) Snapshot() Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balls := make([]BallState, len(m.engine.Balls))
	for i, b := range m.engine.Balls {
		balls[i] = BallState{
			ID:     b.ID,
			Type:   b.BallType,
			X:      b.Position.X,
			Y:      b.Position.Y,
			VX:     b.Velocity.X,
			VY:     b.Velocity.Y,
			Radius: b.Radius,
			Sunk:   b.IsSunk,
		}
	}
	sunk := make([]SinkEvent, len(m.sunk))
	copy(sunk, m.sunk)
	events := make([]CollisionEvent, len(m.engine.Events))
	copy(events, m.engine.Events)

	return Frame{
		MatchID:   m.ID,
		Layout:    m.layout,
		Tick:      m.tick,
		Elapsed:   m.elapsed(),
		Status:    m.status,
		AIEnabled: m.aiEnabled,
		AITurn:    m.aiTurn,
		Group:     m.planner.Group(),
		Balls:     balls,
		Events:    events,
		Sunk:      sunk,
		SunkCount: len(m.sunk),
		Remaining: m.remaining(),
		Score:     len(m.sunk) * PointsPerSink,
		Shots:     m.shots,
		Checksum:  checksum(m.tick, m.engine.Balls),
	}
}

func (m *Match) elapsed() float64 {
	return float64(m.tick) / float64(m.tickRate)
}

func (m *Match) remaining() int {
	n := 0
	for _, b := range m.engine.Balls {
		if b.Active() && !b.IsCueBall {
			n++
		}
	}
	return n
}

func (m *Match) refreshStatus() {
	if m.status.Finished() {
		return
	}
	switch {
	case m.remaining() == 0:
		m.status = StatusCompleted
		m.log.Info("match completed", zap.Int64("tick", m.tick), zap.Int("shots", m.shots))
	case m.planner.BallsStopped():
		m.status = StatusWaiting
	default:
		m.status = StatusInProgress
	}
}

func (m *Match) recordShot(shooter string, force, applied Vec2, decision *ShotDecision) Shot {
	m.shots++
	m.log.Debug("shot taken",
		zap.String("shooter", shooter),
		zap.Int("number", m.shots),
		zap.Float64("force", applied.Magnitude()),
	)
	return Shot{
		MatchID:  m.ID,
		Number:   m.shots,
		Tick:     m.tick,
		Shooter:  shooter,
		Force:    force,
		Applied:  applied,
		Decision: decision,
		TakenAt:  time.Now(),
	}
}

// checksum fingerprints the ball state so two runs can be compared cheaply.
func checksum(tick int64, balls []*Ball) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}

	put(uint64(tick))
	for _, b := range balls {
		put(uint64(b.ID))
		put(math.Float64bits(b.Position.X))
		put(math.Float64bits(b.Position.Y))
		put(math.Float64bits(b.Velocity.X))
		put(math.Float64bits(b.Velocity.Y))
		put(math.Float64bits(b.Radius))
		if b.IsSunk {
			put(1)
		} else {
			put(0)
		}
	}
	return d.Sum64()
}
