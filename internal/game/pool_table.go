package game

// Pocket represents one of the 6 pockets on the table.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Table holds the table bounds and pocket geometry. It is immutable after
// construction.
type Table struct {
	Width        float64  `json:"width"`
	Height       float64  `json:"height"`
	PocketRadius float64  `json:"pocket_radius"`
	Pockets      []Pocket `json:"pockets"`
}

// NewTable derives the pocket layout from the viewport size. Pockets are
// inset by one pocket radius: four corners first, then the two side-middles.
func NewTable(width, height, pocketRadius float64) *Table {
	pr := pocketRadius
	positions := []Vec2{
		NewVec2(pr, pr),              // top-left
		NewVec2(width-pr, pr),        // top-right
		NewVec2(pr, height-pr),       // bottom-left
		NewVec2(width-pr, height-pr), // bottom-right
		NewVec2(width/2, pr),         // middle-top
		NewVec2(width/2, height-pr),  // middle-bottom
	}

	pockets := make([]Pocket, len(positions))
	for i, p := range positions {
		pockets[i] = Pocket{ID: i, Position: p}
	}

	return &Table{
		Width:        width,
		Height:       height,
		PocketRadius: pocketRadius,
		Pockets:      pockets,
	}
}

// IsBallSunk reports whether the ball's centre is within ball.Radius +
// PocketRadius of any pocket. The cue ball is never sunk.
func (t *Table) IsBallSunk(b *Ball) bool {
	_, ok := t.PocketFor(b)
	return ok
}

// PocketFor returns the first pocket the ball has dropped into.
func (t *Table) PocketFor(b *Ball) (Pocket, bool) {
	if b.IsCueBall {
		return Pocket{}, false
	}
	limit := b.Radius + t.PocketRadius
	for _, p := range t.Pockets {
		if b.Position.DistanceTo(p.Position) < limit {
			return p, true
		}
	}
	return Pocket{}, false
}

// SinkEvent records a ball dropping into a pocket.
type SinkEvent struct {
	BallID   int   `json:"ball_id"`
	BallType int   `json:"ball_type"`
	PocketID int   `json:"pocket_id"`
	Tick     int64 `json:"tick"`
}

// UpdateSunk marks every newly pocketed ball as sunk, stops it, and returns
// the events in ball order. Already sunk balls are ignored.
func (t *Table) UpdateSunk(balls []*Ball, tick int64) []SinkEvent {
	var events []SinkEvent
	for _, b := range balls {
		if b.IsSunk {
			continue
		}
		p, ok := t.PocketFor(b)
		if !ok {
			continue
		}
		b.IsSunk = true
		b.Velocity = Vec2{}
		events = append(events, SinkEvent{
			BallID:   b.ID,
			BallType: b.BallType,
			PocketID: p.ID,
			Tick:     tick,
		})
	}
	return events
}
