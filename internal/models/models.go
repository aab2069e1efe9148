package models

import (
	"database/sql"
	"time"
)

// ShotRecord is one row of the append-only shot log.
type ShotRecord struct {
	ID         int64           `db:"id" json:"id"`
	MatchID    string          `db:"match_id" json:"match_id"`
	Layout     string          `db:"layout" json:"layout"`
	ShotNumber int             `db:"shot_number" json:"shot_number"`
	Tick       int64           `db:"tick" json:"tick"`
	Shooter    string          `db:"shooter" json:"shooter"`
	ForceX     float64         `db:"force_x" json:"force_x"`
	ForceY     float64         `db:"force_y" json:"force_y"`
	AppliedX   float64         `db:"applied_x" json:"applied_x"`
	AppliedY   float64         `db:"applied_y" json:"applied_y"`
	TargetBall sql.NullInt64   `db:"target_ball" json:"target_ball,omitempty"`
	PocketID   sql.NullInt64   `db:"pocket_id" json:"pocket_id,omitempty"`
	Score      sql.NullFloat64 `db:"score" json:"score,omitempty"`
	Decision   sql.NullString  `db:"decision" json:"-"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// MatchResult summarizes a match once it is completed or removed.
type MatchResult struct {
	MatchID    string    `db:"match_id" json:"match_id"`
	Layout     string    `db:"layout" json:"layout"`
	Status     string    `db:"status" json:"status"`
	Ticks      int64     `db:"ticks" json:"ticks"`
	Shots      int       `db:"shots" json:"shots"`
	SunkCount  int       `db:"sunk_count" json:"sunk_count"`
	Score      int       `db:"score" json:"score"`
	Checksum   string    `db:"checksum" json:"checksum"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}
