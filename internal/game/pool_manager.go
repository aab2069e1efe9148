package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/models"
	rediskit "github.com/playmatatu/gravpool/internal/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrTooManyMatches = errors.New("too many active matches")

// MatchManager owns the live matches. It publishes frames to Redis and
// appends shots to the database; either store may be nil.
type MatchManager struct {
	mu      sync.RWMutex
	matches map[string]*Match
	db      *sqlx.DB
	rdb     *redis.Client
	cfg     *config.Config
	tuning  *config.Tuning
	log     *zap.Logger

	// frames receives every published frame when no Redis client is set.
	frames func(payload []byte)
}

func NewMatchManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, tuning *config.Tuning, log *zap.Logger) *MatchManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchManager{
		matches: make(map[string]*Match),
		db:      db,
		rdb:     rdb,
		cfg:     cfg,
		tuning:  tuning,
		log:     log,
	}
}

// OnFrame registers a local frame listener used when frames are not routed
// through Redis.
func (mm *MatchManager) OnFrame(fn func(payload []byte)) {
	mm.mu.Lock()
	mm.frames = fn
	mm.mu.Unlock()
}

// CreateMatch builds a match and registers it under a new ID.
func (mm *MatchManager) CreateMatch(ctx context.Context, opts MatchOptions) (*Match, error) {
	mm.mu.Lock()
	if mm.cfg.MaxMatches > 0 && len(mm.matches) >= mm.cfg.MaxMatches {
		mm.mu.Unlock()
		return nil, ErrTooManyMatches
	}

	m, err := NewMatch(uuid.NewString(), opts, mm.tuning, mm.cfg.TickRate, mm.log.Named("match"))
	if err != nil {
		mm.mu.Unlock()
		return nil, err
	}
	mm.matches[m.ID] = m
	mm.mu.Unlock()

	mm.publishFrame(ctx, m.Snapshot())
	return m, nil
}

func (mm *MatchManager) GetMatch(id string) (*Match, error) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	m, ok := mm.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// ListMatches returns a frame for every live match, oldest first.
func (mm *MatchManager) ListMatches() []Frame {
	mm.mu.RLock()
	matches := make([]*Match, 0, len(mm.matches))
	for _, m := range mm.matches {
		matches = append(matches, m)
	}
	mm.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	frames := make([]Frame, len(matches))
	for i, m := range matches {
		frames[i] = m.Snapshot()
	}
	return frames
}

func (mm *MatchManager) ActiveMatchCount() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return len(mm.matches)
}

// RemoveMatch cancels a match, records its result and forgets it.
func (mm *MatchManager) RemoveMatch(ctx context.Context, id string) error {
	mm.mu.Lock()
	m, ok := mm.matches[id]
	if ok {
		delete(mm.matches, id)
	}
	mm.mu.Unlock()
	if !ok {
		return ErrMatchNotFound
	}

	if m.Status() != StatusCompleted {
		m.Cancel()
	}
	frame := m.Snapshot()
	mm.publishFrame(ctx, frame)
	mm.saveResult(ctx, frame)
	mm.log.Info("match removed", zap.String("match_id", id), zap.String("status", string(frame.Status)))
	return nil
}

// Shoot applies a human shot and logs it.
func (mm *MatchManager) Shoot(ctx context.Context, id string, force Vec2) (Shot, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return Shot{}, err
	}
	shot, err := m.Shoot(force)
	if err != nil {
		return Shot{}, err
	}
	mm.RecordShot(ctx, m.layout, shot)
	mm.publishFrame(ctx, m.Snapshot())
	return shot, nil
}

// Drag applies a drag gesture. The bool is false if the gesture was too short.
func (mm *MatchManager) Drag(ctx context.Context, id string, press, release Vec2) (Shot, bool, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return Shot{}, false, err
	}
	shot, ok, err := m.Drag(press, release)
	if err != nil || !ok {
		return shot, ok, err
	}
	mm.RecordShot(ctx, m.layout, shot)
	mm.publishFrame(ctx, m.Snapshot())
	return shot, true, nil
}

// PlaceCueBall repositions the cue ball of a settled match.
func (mm *MatchManager) PlaceCueBall(ctx context.Context, id string, pos Vec2) (Frame, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return Frame{}, err
	}
	if err := m.PlaceCueBall(pos); err != nil {
		return Frame{}, err
	}
	frame := m.Snapshot()
	mm.publishFrame(ctx, frame)
	return frame, nil
}

func (mm *MatchManager) SetAI(ctx context.Context, id string, enabled bool) (Frame, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return Frame{}, err
	}
	m.SetAI(enabled)
	frame := m.Snapshot()
	mm.publishFrame(ctx, frame)
	return frame, nil
}

// Shrink fires a shrink ray and returns the IDs of the balls it hit.
func (mm *MatchManager) Shrink(ctx context.Context, id string, at Vec2, power float64) ([]int, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return nil, err
	}
	hit, err := m.Shrink(at, power)
	if err != nil {
		return nil, err
	}
	if len(hit) > 0 {
		mm.publishFrame(ctx, m.Snapshot())
	}
	return hit, nil
}

// Step advances a match synchronously and returns the resulting frame.
func (mm *MatchManager) Step(ctx context.Context, id string, ticks int) (StepResult, Frame, error) {
	m, err := mm.GetMatch(id)
	if err != nil {
		return StepResult{}, Frame{}, err
	}
	res, err := m.Step(ticks)
	if err != nil {
		return res, Frame{}, err
	}
	frame := mm.afterStep(ctx, m, res)
	mm.publishFrame(ctx, frame)
	return res, frame, nil
}

// TickAll advances every realtime match by one tick. Frames are published
// every FrameEveryTicks ticks while balls move and whenever something
// happened.
func (mm *MatchManager) TickAll(ctx context.Context) {
	mm.mu.RLock()
	matches := make([]*Match, 0, len(mm.matches))
	for _, m := range mm.matches {
		if !m.Manual() {
			matches = append(matches, m)
		}
	}
	mm.mu.RUnlock()

	every := int64(mm.cfg.FrameEveryTicks)
	if every <= 0 {
		every = 1
	}

	for _, m := range matches {
		before := m.Status()
		if before.Finished() {
			continue
		}
		res, err := m.Step(1)
		if err != nil {
			continue
		}
		frame := mm.afterStep(ctx, m, res)

		changed := frame.Status != before || len(res.Shots) > 0 || len(res.Sinks) > 0
		if changed || (frame.Status == StatusInProgress && frame.Tick%every == 0) {
			mm.publishFrame(ctx, frame)
		}
	}
}

// afterStep logs agent shots and records the result of a completed match.
func (mm *MatchManager) afterStep(ctx context.Context, m *Match, res StepResult) Frame {
	for _, shot := range res.Shots {
		mm.RecordShot(ctx, m.layout, shot)
	}
	frame := m.Snapshot()
	if m.claimResult() {
		mm.saveResult(ctx, frame)
	}
	return frame
}

// RecordShot appends a shot to the shot log.
func (mm *MatchManager) RecordShot(ctx context.Context, layout string, shot Shot) {
	if mm.db == nil || !mm.cfg.ShotLogEnabled {
		return
	}

	rec := models.ShotRecord{
		MatchID:    shot.MatchID,
		Layout:     layout,
		ShotNumber: shot.Number,
		Tick:       shot.Tick,
		Shooter:    shot.Shooter,
		ForceX:     shot.Force.X,
		ForceY:     shot.Force.Y,
		AppliedX:   shot.Applied.X,
		AppliedY:   shot.Applied.Y,
	}
	if d := shot.Decision; d != nil {
		rec.TargetBall = sql.NullInt64{Int64: int64(d.TargetID), Valid: true}
		rec.PocketID = sql.NullInt64{Int64: int64(d.PocketID), Valid: true}
		rec.Score = sql.NullFloat64{Float64: d.Score, Valid: true}
		if data, err := json.Marshal(d); err == nil {
			rec.Decision = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := mm.db.NamedExecContext(ctx,
		`INSERT INTO shot_log (match_id, layout, shot_number, tick, shooter, force_x, force_y, applied_x, applied_y, target_ball, pocket_id, score, decision)
		 VALUES (:match_id, :layout, :shot_number, :tick, :shooter, :force_x, :force_y, :applied_x, :applied_y, :target_ball, :pocket_id, :score, CAST(:decision AS jsonb))`,
		rec,
	)
	if err != nil {
		mm.log.Error("failed to record shot",
			zap.String("match_id", shot.MatchID), zap.Int("number", shot.Number), zap.Error(err))
	}
}

// ShotHistory returns the logged shots of a match in order.
func (mm *MatchManager) ShotHistory(ctx context.Context, matchID string) ([]models.ShotRecord, error) {
	if mm.db == nil {
		return nil, nil
	}
	var shots []models.ShotRecord
	err := mm.db.SelectContext(ctx, &shots,
		`SELECT id, match_id, layout, shot_number, tick, shooter, force_x, force_y, applied_x, applied_y,
		        target_ball, pocket_id, score, decision, created_at
		   FROM shot_log WHERE match_id = $1 ORDER BY shot_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shots for %s: %w", matchID, err)
	}
	return shots, nil
}

func (mm *MatchManager) saveResult(ctx context.Context, f Frame) {
	if mm.db == nil || !mm.cfg.ShotLogEnabled {
		return
	}
	res := models.MatchResult{
		MatchID:    f.MatchID,
		Layout:     f.Layout,
		Status:     string(f.Status),
		Ticks:      f.Tick,
		Shots:      f.Shots,
		SunkCount:  f.SunkCount,
		Score:      f.Score,
		Checksum:   strconv.FormatUint(f.Checksum, 16),
		FinishedAt: time.Now(),
	}
	_, err := mm.db.NamedExecContext(ctx,
		`INSERT INTO match_results (match_id, layout, status, ticks, shots, sunk_count, score, checksum, finished_at)
		 VALUES (:match_id, :layout, :status, :ticks, :shots, :sunk_count, :score, :checksum, :finished_at)
		 ON CONFLICT (match_id) DO UPDATE SET status = EXCLUDED.status, ticks = EXCLUDED.ticks,
		   shots = EXCLUDED.shots, sunk_count = EXCLUDED.sunk_count, score = EXCLUDED.score,
		   checksum = EXCLUDED.checksum, finished_at = EXCLUDED.finished_at`,
		res,
	)
	if err != nil {
		mm.log.Error("failed to save match result", zap.String("match_id", f.MatchID), zap.Error(err))
	}
}

func (mm *MatchManager) publishFrame(ctx context.Context, f Frame) {
	mm.mu.RLock()
	local := mm.frames
	mm.mu.RUnlock()
	if mm.rdb == nil && local == nil {
		return
	}

	payload, err := json.Marshal(f)
	if err != nil {
		mm.log.Error("failed to encode frame", zap.String("match_id", f.MatchID), zap.Error(err))
		return
	}
	if mm.rdb == nil {
		local(payload)
		return
	}
	if err := rediskit.Publish(ctx, mm.rdb, mm.cfg.FrameChannel, payload); err != nil {
		mm.log.Warn("failed to publish frame", zap.String("match_id", f.MatchID), zap.Error(err))
	}
}
