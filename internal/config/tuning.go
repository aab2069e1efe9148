package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed tuning.schema.json
var tuningSchema string

const tuningSchemaURL = "https://gravpool.playmatatu.com/schema/tuning.json"

// PhysicsTuning holds the constants used by the physics engine and table.
type PhysicsTuning struct {
	TableWidth                 float64 `json:"tableWidth" yaml:"tableWidth"`
	TableHeight                float64 `json:"tableHeight" yaml:"tableHeight"`
	PocketRadius               float64 `json:"pocketRadius" yaml:"pocketRadius"`
	BallRadius                 float64 `json:"ballRadius" yaml:"ballRadius"`
	MassPerRadius              float64 `json:"massPerRadius" yaml:"massPerRadius"`
	MaxForce                   float64 `json:"maxForce" yaml:"maxForce"`
	FrictionCoefficient        float64 `json:"frictionCoefficient" yaml:"frictionCoefficient"`
	Restitution                float64 `json:"restitution" yaml:"restitution"` // impulse scale, 1 = perfectly elastic
	WallMargin                 float64 `json:"wallMargin" yaml:"wallMargin"`
	GravityEnabled             bool    `json:"gravityEnabled" yaml:"gravityEnabled"`
	GravitationalConstant      float64 `json:"gravitationalConstant" yaml:"gravitationalConstant"`
	GravityLagWindow           int64   `json:"gravityLagWindow" yaml:"gravityLagWindow"` // ticks
	EightBallGravityMultiplier float64 `json:"eightBallGravityMultiplier" yaml:"eightBallGravityMultiplier"`
}

// PlannerTuning holds the shot planner's thresholds and weights.
type PlannerTuning struct {
	StopThreshold               float64 `json:"stopThreshold" yaml:"stopThreshold"`
	CueStopThreshold            float64 `json:"cueStopThreshold" yaml:"cueStopThreshold"`
	MoveCooldown                float64 `json:"moveCooldown" yaml:"moveCooldown"` // seconds
	SpreadAngle                 float64 `json:"spreadAngle" yaml:"spreadAngle"`   // degrees
	OverlapFactor               float64 `json:"overlapFactor" yaml:"overlapFactor"`
	ClusterThresholdMultiplier  float64 `json:"clusterThresholdMultiplier" yaml:"clusterThresholdMultiplier"`
	AngleWeight                 float64 `json:"angleWeight" yaml:"angleWeight"`
	ObstructionPenalty          float64 `json:"obstructionPenalty" yaml:"obstructionPenalty"`
	ObstructionRadiusMultiplier float64 `json:"obstructionRadiusMultiplier" yaml:"obstructionRadiusMultiplier"`
	IllegalEightPenalty         float64 `json:"illegalEightPenalty" yaml:"illegalEightPenalty"`
	ForceScale                  float64 `json:"forceScale" yaml:"forceScale"`
	MinShotForce                float64 `json:"minShotForce" yaml:"minShotForce"`
	MaxShotForce                float64 `json:"maxShotForce" yaml:"maxShotForce"`
	ClusterForceStep            float64 `json:"clusterForceStep" yaml:"clusterForceStep"`
	AngleForceWeight            float64 `json:"angleForceWeight" yaml:"angleForceWeight"`
}

// InputTuning converts drag gestures into cue forces.
type InputTuning struct {
	DragScale    float64 `json:"dragScale" yaml:"dragScale"`
	DragDeadZone float64 `json:"dragDeadZone" yaml:"dragDeadZone"`
}

// ShrinkTuning configures the shrink ray power-up.
type ShrinkTuning struct {
	Factor        float64 `json:"factor" yaml:"factor"`
	RangePerPower float64 `json:"rangePerPower" yaml:"rangePerPower"`
}

// Tuning is the full set of simulation constants. It is fixed per deployment.
type Tuning struct {
	Physics PhysicsTuning `json:"physics" yaml:"physics"`
	Planner PlannerTuning `json:"planner" yaml:"planner"`
	Input   InputTuning   `json:"input" yaml:"input"`
	Shrink  ShrinkTuning  `json:"shrink" yaml:"shrink"`
}

func DefaultTuning() *Tuning {
	return &Tuning{
		Physics: PhysicsTuning{
			TableWidth:                 800,
			TableHeight:                600,
			PocketRadius:               50,
			BallRadius:                 15,
			MassPerRadius:              0.66,
			MaxForce:                   100,
			FrictionCoefficient:        0.01,
			Restitution:                1,
			WallMargin:                 1,
			GravityEnabled:             false,
			GravitationalConstant:      0.5,
			GravityLagWindow:           200,
			EightBallGravityMultiplier: 3,
		},
		Planner: PlannerTuning{
			StopThreshold:               0.3,
			CueStopThreshold:            0.1,
			MoveCooldown:                1,
			SpreadAngle:                 30,
			OverlapFactor:               0.9,
			ClusterThresholdMultiplier:  3,
			AngleWeight:                 50,
			ObstructionPenalty:          100,
			ObstructionRadiusMultiplier: 3,
			IllegalEightPenalty:         1000,
			ForceScale:                  300,
			MinShotForce:                200,
			MaxShotForce:                1000,
			ClusterForceStep:            0.2,
			AngleForceWeight:            0.5,
		},
		Input: InputTuning{
			DragScale:    0.5,
			DragDeadZone: 0.5,
		},
		Shrink: ShrinkTuning{
			Factor:        0.8,
			RangePerPower: 10,
		},
	}
}

// LoadTuning reads a JSON or YAML tuning file, validates it against the
// embedded schema and overlays it on DefaultTuning. Missing keys keep their
// defaults. An empty path returns the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	doc, err := toJSON(path, raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateTuning(doc); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tuning: %w", err)
	}
	return t, nil
}

// ValidateTuning checks a JSON tuning document against the embedded schema.
func ValidateTuning(doc []byte) error {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(tuningSchemaURL, strings.NewReader(tuningSchema)); err != nil {
		return fmt.Errorf("failed to load tuning schema: %w", err)
	}
	sch, err := c.Compile(tuningSchemaURL)
	if err != nil {
		return fmt.Errorf("failed to compile tuning schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("failed to decode tuning json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("tuning validation failed: %w", err)
	}
	return nil
}

// toJSON normalizes YAML input to JSON so a single schema covers both formats.
func toJSON(path string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v map[string]interface{}
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode tuning yaml: %w", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode tuning yaml: %w", err)
		}
		return b, nil
	default:
		return raw, nil
	}
}
