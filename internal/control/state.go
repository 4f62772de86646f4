package control

import "time"

// ButtonState is the debounce state of one button.
type ButtonState struct {
	Pressed bool `json:"pressed"`
	// CooldownUntil blocks transitions for this button after a release.
	CooldownUntil time.Time `json:"cooldown_until"`
}

// Cooling reports whether transitions are still blocked at now.
func (b ButtonState) Cooling(now time.Time) bool {
	return now.Before(b.CooldownUntil)
}

// State is the only interaction memory carried between frames. The zero
// value has both buttons released.
type State struct {
	Left  ButtonState `json:"left"`
	Right ButtonState `json:"right"`
}

// Button returns the state for b.
func (s *State) Button(b Button) *ButtonState {
	if b == ButtonRight {
		return &s.Right
	}
	return &s.Left
}

// Held returns the buttons currently pressed.
func (s *State) Held() []Button {
	var held []Button
	if s.Left.Pressed {
		held = append(held, ButtonLeft)
	}
	if s.Right.Pressed {
		held = append(held, ButtonRight)
	}
	return held
}
