// Package volume holds the level arithmetic shared by every input path.
// All volume changes go through these functions so the clamp and headphone
// offset hold for every reachable level.
package volume

const (
	Min = 0  // quietest level; the amp is powered down here
	Max = 31 // loudest level the 5-bit register field can carry

	// HeadphoneOffset is how far the headphone output sits below the speaker output.
	HeadphoneOffset = 10

	// Default is the level applied at startup in button mode.
	Default = 22
)

// Clamp forces level into [Min, Max].
func Clamp(level int) int {
	if level < Min {
		return Min
	}
	if level > Max {
		return Max
	}
	return level
}

// ClampIncrement returns min(level+1, Max).
func ClampIncrement(level int) int {
	return Clamp(level + 1)
}

// ClampDecrement returns max(level-1, Min).
func ClampDecrement(level int) int {
	return Clamp(level - 1)
}

// DeriveLevels maps a level to the values written to the speaker and headphone
// registers.
func DeriveLevels(level int) (speaker, headphone int) {
	level = Clamp(level)
	headphone = level - HeadphoneOffset
	if headphone < 0 {
		headphone = 0
	}
	return level, headphone
}

// State is a level together with its derived output levels.
// The zero value is level 0 with both outputs at 0.
type State struct {
	level     int
	speaker   int
	headphone int
}

// At builds the State for level, clamped into range.
func At(level int) State {
	level = Clamp(level)
	sp, hp := DeriveLevels(level)
	return State{level: level, speaker: sp, headphone: hp}
}

func (s State) Level() int     { return s.level }
func (s State) Speaker() int   { return s.speaker }
func (s State) Headphone() int { return s.headphone }

// Up returns the state one step louder.
func (s State) Up() State { return At(ClampIncrement(s.level)) }

// Down returns the state one step quieter.
func (s State) Down() State { return At(ClampDecrement(s.level)) }
