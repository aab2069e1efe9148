// Command simulate runs a single match headlessly and prints its final frame.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/game"
	"github.com/playmatatu/gravpool/internal/logger"
	"go.uber.org/zap"
)

func main() {
	layout := flag.String("layout", game.LayoutRack, "table layout: rack or scenario")
	rack := flag.Int("rack", 0, "object balls in the rack (default 10)")
	ticks := flag.Int("ticks", 600, "ticks to simulate")
	force := flag.String("force", "", "opening shot as x,y (empty for none)")
	ai := flag.Bool("ai", false, "let the agent play")
	gravity := flag.Bool("gravity", false, "enable inter-ball gravity")
	tuningFile := flag.String("tuning", "", "tuning file (json or yaml)")
	env := flag.String("env", "development", "logging environment")
	flag.Parse()

	log, err := logger.New(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *layout, *rack, *ticks, *force, *ai, *gravity, *tuningFile); err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}
}

func run(log *zap.Logger, layout string, rack, ticks int, force string, ai, gravity bool, tuningFile string) error {
	tuning, err := config.LoadTuning(tuningFile)
	if err != nil {
		return err
	}

	m, err := game.NewMatch("cli", game.MatchOptions{
		Layout:    layout,
		RackSize:  rack,
		AIEnabled: ai,
		Manual:    true,
		Gravity:   &gravity,
	}, tuning, 60, log)
	if err != nil {
		return err
	}

	if force != "" {
		f, err := parseVec(force)
		if err != nil {
			return err
		}
		if ai {
			m.SetAI(false)
		}
		shot, err := m.Shoot(f)
		if err != nil {
			return err
		}
		log.Info("opening shot", zap.Float64("x", shot.Applied.X), zap.Float64("y", shot.Applied.Y))
		if ai {
			m.SetAI(true)
		}
	}

	res, err := m.Step(ticks)
	if err != nil {
		return err
	}
	frame := m.Snapshot()
	log.Info("simulation finished",
		zap.Int("ticks", res.Ticks),
		zap.Int("shots", frame.Shots),
		zap.Int("sunk", frame.SunkCount),
		zap.Int("score", frame.Score),
		zap.String("status", string(frame.Status)),
		zap.String("checksum", strconv.FormatUint(frame.Checksum, 16)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(frame)
}

func parseVec(s string) (game.Vec2, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return game.Vec2{}, fmt.Errorf("force must be x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return game.Vec2{}, fmt.Errorf("bad force x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return game.Vec2{}, fmt.Errorf("bad force y: %w", err)
	}
	return game.NewVec2(x, y), nil
}
