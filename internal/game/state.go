package game

// GameStatus represents the current state of a match
type GameStatus string

const (
	StatusWaiting    GameStatus = "WAITING"     // table settled, waiting for a shot
	StatusInProgress GameStatus = "IN_PROGRESS" // balls rolling
	StatusCompleted  GameStatus = "COMPLETED"   // every object ball sunk
	StatusCancelled  GameStatus = "CANCELLED"
)

// Finished reports whether the match no longer accepts input.
func (s GameStatus) Finished() bool {
	return s == StatusCompleted || s == StatusCancelled
}
