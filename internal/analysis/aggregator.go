// Package analysis turns a received frame stream into pacing and timecode
// statistics for one source.
package analysis

import (
	"sort"
	"time"

	"ndi-chaos-go/internal/timecode"
	"ndi-chaos-go/internal/types"
)

// DefaultStallFactor is how many nominal periods a gap must span before it
// counts as a stall.
const DefaultStallFactor = 3.0

// Gap is one inter-arrival interval, keyed by the sequence that closed it.
type Gap struct {
	Sequence uint64
	Index    int
	At       time.Time
	Interval time.Duration
	Stall    bool
}

type Summary struct {
	Source           string        `json:"source"`
	Frames           uint64        `json:"frames"`
	Dropped          uint64        `json:"dropped"`
	Stalls           uint64        `json:"stalls"`
	NonMonotonic     uint64        `json:"timecode_non_monotonic"`
	RepeatedTimecode uint64        `json:"timecode_repeated"`
	InvalidTimecode  uint64        `json:"timecode_invalid"`
	Nominal          time.Duration `json:"nominal_ns"`
	MinGap           time.Duration `json:"min_gap_ns"`
	MaxGap           time.Duration `json:"max_gap_ns"`
	MeanGap          time.Duration `json:"mean_gap_ns"`
	P99Gap           time.Duration `json:"p99_gap_ns"`
}

// Aggregator is not safe for concurrent use; the listener feeds it from a
// single goroutine.
type Aggregator struct {
	stallFactor float64
	source      string
	nominal     time.Duration

	frames       uint64
	dropped      uint64
	stalls       uint64
	nonMonotonic uint64
	repeated     uint64
	invalid      uint64

	haveLast bool
	lastAt   time.Time
	lastSeq  uint64
	lastTC   int64
	gaps      []Gap
	gapCount  uint64
	sumGap    time.Duration
	minGap    time.Duration
	maxGap    time.Duration
	maxRetain int
}

func NewAggregator(stallFactor float64, maxRetain int) *Aggregator {
	if stallFactor <= 1 {
		stallFactor = DefaultStallFactor
	}
	if maxRetain < 1 {
		maxRetain = 1 << 16
	}
	return &Aggregator{stallFactor: stallFactor, maxRetain: maxRetain}
}

// AddFrame folds one video message in. start and end messages reset the
// cadence so a restarted sender does not register as a stall.
func (a *Aggregator) AddFrame(frame types.ReceivedFrame) {
	switch frame.Type {
	case "start", "end":
		a.source = frame.Source
		a.haveLast = false
		return
	case "video":
	default:
		return
	}

	if a.source == "" {
		a.source = frame.Source
	}
	if frame.FrameRateN > 0 && frame.FrameRateD > 0 {
		a.nominal = time.Duration(int64(time.Second) * int64(frame.FrameRateD) / int64(frame.FrameRateN))
	}
	at := time.Unix(0, frame.ReceivedAt)
	a.frames++

	if frame.Timecode == timecode.InvalidValue {
		a.invalid++
	}

	if a.haveLast {
		if frame.Sequence > a.lastSeq+1 {
			a.dropped += frame.Sequence - a.lastSeq - 1
		}
		a.checkTimecode(frame.Timecode)
		a.addGap(Gap{
			Sequence: frame.Sequence,
			Index:    frame.Index,
			At:       at,
			Interval: at.Sub(a.lastAt),
		})
	}

	a.haveLast = true
	a.lastAt = at
	a.lastSeq = frame.Sequence
	a.lastTC = frame.Timecode
}

func (a *Aggregator) checkTimecode(tc int64) {
	// Sentinel and constant modes repeat by construction; only counting
	// modes are judged.
	if tc == timecode.Synthesize || tc == timecode.InvalidValue {
		return
	}
	switch {
	case tc == a.lastTC:
		a.repeated++
	case tc < a.lastTC:
		a.nonMonotonic++
	}
}

func (a *Aggregator) addGap(g Gap) {
	if a.nominal > 0 && float64(g.Interval) > a.stallFactor*float64(a.nominal) {
		g.Stall = true
		a.stalls++
	}
	if a.gapCount == 0 {
		a.minGap = g.Interval
		a.maxGap = g.Interval
	}
	a.gapCount++
	if g.Interval < a.minGap {
		a.minGap = g.Interval
	}
	if g.Interval > a.maxGap {
		a.maxGap = g.Interval
	}
	a.sumGap += g.Interval
	a.gaps = append(a.gaps, g)
	if len(a.gaps) > a.maxRetain {
		a.gaps = a.gaps[len(a.gaps)-a.maxRetain:]
	}
}

func (a *Aggregator) Reset() {
	*a = Aggregator{stallFactor: a.stallFactor, maxRetain: a.maxRetain}
}

func (a *Aggregator) Stalls() uint64 {
	return a.stalls
}

// LastGap returns the most recent interval, if any.
func (a *Aggregator) LastGap() (Gap, bool) {
	if len(a.gaps) == 0 {
		return Gap{}, false
	}
	return a.gaps[len(a.gaps)-1], true
}

// Gaps returns a copy of the retained intervals, oldest first.
func (a *Aggregator) Gaps() []Gap {
	out := make([]Gap, len(a.gaps))
	copy(out, a.gaps)
	return out
}

func (a *Aggregator) Snapshot() Summary {
	s := Summary{
		Source:           a.source,
		Frames:           a.frames,
		Dropped:          a.dropped,
		Stalls:           a.stalls,
		NonMonotonic:     a.nonMonotonic,
		RepeatedTimecode: a.repeated,
		InvalidTimecode:  a.invalid,
		Nominal:          a.nominal,
		MinGap:           a.minGap,
		MaxGap:           a.maxGap,
	}
	if a.gapCount > 0 {
		s.MeanGap = a.sumGap / time.Duration(a.gapCount)
	}
	if len(a.gaps) > 0 {
		sorted := make([]time.Duration, len(a.gaps))
		for i, g := range a.gaps {
			sorted[i] = g.Interval
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		idx := (len(sorted)*99 + 99) / 100
		if idx > len(sorted) {
			idx = len(sorted)
		}
		s.P99Gap = sorted[idx-1]
	}
	return s
}
