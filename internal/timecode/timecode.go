// Package timecode maps a timecode mode and scheduler counters to the value
// stamped on each outgoing frame.
package timecode

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Synthesize asks the protocol to assign its own timecode. It is passed
// through unmodified and never computed locally.
const Synthesize int64 = math.MaxInt64

// InvalidValue is stamped in Invalid mode.
const InvalidValue int64 = 1

// TicksPerSecond is the protocol tick unit (100 ns).
const TicksPerSecond = int64(time.Second / 100)

type Mode int32

const (
	ModeSynthesize Mode = iota
	ModeInvalid
	ModeFrameCounter
	ModeSystemClock
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeInvalid:
		return "Invalid"
	case ModeFrameCounter:
		return "FrameCounter"
	case ModeSystemClock:
		return "SystemClock"
	case ModeRandom:
		return "Random"
	default:
		return "Synthesize"
	}
}

// Compute returns the timecode for one frame. rng is only consulted in
// Random mode and may be nil otherwise.
func Compute(mode Mode, iteration int64, now time.Time, rng *rand.Rand) int64 {
	switch mode {
	case ModeInvalid:
		return InvalidValue
	case ModeFrameCounter:
		return iteration
	case ModeSystemClock:
		return Ticks(now)
	case ModeRandom:
		if rng == nil {
			return rand.Int63()
		}
		return rng.Int63()
	default:
		return Synthesize
	}
}

// Ticks converts a wall-clock time to 100 ns units since the Unix epoch.
func Ticks(t time.Time) int64 {
	return t.UnixNano() / 100
}

// ParseMode accepts the names used on the command line. Anything it does not
// recognise selects Synthesize.
func ParseMode(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "invalid":
		return ModeInvalid
	case "framecounter":
		return ModeFrameCounter
	case "systemclock":
		return ModeSystemClock
	case "random":
		return ModeRandom
	default:
		return ModeSynthesize
	}
}

// ModeFromCommand maps the single-letter console argument of the t command.
func ModeFromCommand(letter string) Mode {
	switch strings.TrimSpace(letter) {
	case "c":
		return ModeSystemClock
	case "i":
		return ModeInvalid
	case "o":
		return ModeFrameCounter
	case "r":
		return ModeRandom
	default:
		return ModeSynthesize
	}
}
