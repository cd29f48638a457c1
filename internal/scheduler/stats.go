package scheduler

import "sync/atomic"

// Stats mirrors scheduler progress for observers. Only the scheduler writes it.
type Stats struct {
	framesSent   atomic.Uint64
	stalls       atomic.Uint64
	stallNanos   atomic.Int64
	sendErrors   atomic.Uint64
	frameIndex   atomic.Int64
	lastTimecode atomic.Int64
	lastGapNanos atomic.Int64
	maxGapNanos  atomic.Int64
	lastSendUnix atomic.Int64
}

func (s *Stats) recordSend(index int, tc int64, gapNanos int64, atUnixNano int64) {
	s.framesSent.Add(1)
	s.frameIndex.Store(int64(index))
	s.lastTimecode.Store(tc)
	s.lastSendUnix.Store(atUnixNano)
	if gapNanos <= 0 {
		return
	}
	s.lastGapNanos.Store(gapNanos)
	for {
		cur := s.maxGapNanos.Load()
		if gapNanos <= cur || s.maxGapNanos.CompareAndSwap(cur, gapNanos) {
			return
		}
	}
}

func (s *Stats) FramesSent() uint64 { return s.framesSent.Load() }
func (s *Stats) Stalls() uint64     { return s.stalls.Load() }

func (s *Stats) snapshot() map[string]any {
	return map[string]any{
		"frames_sent_total":  s.framesSent.Load(),
		"stalls_total":       s.stalls.Load(),
		"stall_nanos_total":  s.stallNanos.Load(),
		"send_errors_total":  s.sendErrors.Load(),
		"frame_index":        s.frameIndex.Load(),
		"last_timecode":      s.lastTimecode.Load(),
		"last_gap_nanos":     s.lastGapNanos.Load(),
		"max_gap_nanos":      s.maxGapNanos.Load(),
		"last_send_unixnano": s.lastSendUnix.Load(),
	}
}
