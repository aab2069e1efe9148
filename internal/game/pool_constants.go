package game

// Ball numbering for 8-ball: 0=cue, 1-7=solids, 8=eight, 9-15=stripes.
const (
	CueBallType   = 0
	EightBallType = 8
	MaxBallType   = 15

	// NoCollision marks a ball that has never touched another ball.
	NoCollision int64 = -1

	// PointsPerSink is the score awarded for every sunk object ball.
	PointsPerSink = 10

	// DefaultRackSize is the number of object balls in a level rack.
	DefaultRackSize = 10
)

// BallGroup represents a ball group in 8-ball.
type BallGroup string

const (
	GroupSolids  BallGroup = "SOLIDS"
	GroupStripes BallGroup = "STRIPES"
	GroupAny     BallGroup = "ANY" // not yet determined
	Group8Ball   BallGroup = "8BALL"
	GroupCue     BallGroup = "CUE"
)

// ballGroup returns the group for a ball type.
func ballGroup(ballType int) BallGroup {
	switch {
	case ballType == CueBallType:
		return GroupCue
	case ballType >= 1 && ballType <= 7:
		return GroupSolids
	case ballType == EightBallType:
		return Group8Ball
	case ballType >= 9 && ballType <= MaxBallType:
		return GroupStripes
	}
	return ""
}
