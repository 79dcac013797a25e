// Package reveal models the fade-in of a content block the first time it
// scrolls into view. Each Trigger is a two-state machine, watching -> fired,
// and the transition happens at most once.
package reveal

import (
	"encoding/json"
	"errors"
	"fmt"
)

type State string

const (
	Watching State = "watching"
	Fired    State = "fired"
)

// Direction is where a hidden block sits relative to its resting position.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
	None  Direction = "none"
)

const (
	// DefaultThreshold is the visible fraction content blocks wait for.
	DefaultThreshold = 0.1
	offsetPx         = 40
)

var ErrBadThreshold = errors.New("reveal: threshold must be in (0, 1]")

// Presentation is what the block should look like right now.
type Presentation struct {
	Opacity   float64 `json:"opacity"`
	Transform string  `json:"transform"`
	Delay     float64 `json:"delay"` // seconds
}

type Trigger struct {
	state     State
	threshold float64
	direction Direction
	delay     float64
}

func New(threshold float64, dir Direction, delay float64) (*Trigger, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, ErrBadThreshold
	}
	if dir == "" {
		dir = Up
	}
	return &Trigger{state: Watching, threshold: threshold, direction: dir, delay: delay}, nil
}

func (t *Trigger) State() State { return t.state }

// Observe feeds one visibility sample (fraction of the block on screen). It
// returns true only for the sample that fires the trigger; afterwards every
// sample is ignored.
func (t *Trigger) Observe(fraction float64) bool {
	if t.state == Fired {
		return false
	}
	if fraction < t.threshold {
		return false
	}
	t.state = Fired
	return true
}

func (t *Trigger) Presentation() Presentation {
	if t.state == Fired {
		return Presentation{Opacity: 1, Transform: "none", Delay: t.delay}
	}
	return Presentation{Opacity: 0, Transform: hiddenTransform(t.direction), Delay: t.delay}
}

func hiddenTransform(d Direction) string {
	switch d {
	case Down:
		return fmt.Sprintf("translateY(-%dpx)", offsetPx)
	case Left:
		return fmt.Sprintf("translateX(%dpx)", offsetPx)
	case Right:
		return fmt.Sprintf("translateX(-%dpx)", offsetPx)
	case None:
		return "none"
	default:
		return fmt.Sprintf("translateY(%dpx)", offsetPx)
	}
}

type wire struct {
	State     State     `json:"state"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
	Delay     float64   `json:"delay"`
}

func (t *Trigger) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{State: t.state, Threshold: t.threshold, Direction: t.direction, Delay: t.delay})
}

func (t *Trigger) UnmarshalJSON(b []byte) error {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.State != Watching && w.State != Fired {
		return fmt.Errorf("reveal: unknown state %q", w.State)
	}
	*t = Trigger{state: w.State, threshold: w.Threshold, direction: w.Direction, delay: w.Delay}
	return nil
}
