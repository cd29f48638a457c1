// Package procstats samples the generator's own CPU and memory use. The
// spin-wait pacing trades CPU for deadline accuracy, so it is worth watching.
package procstats

import (
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

type Sampler struct {
	mu   sync.Mutex
	proc *process.Process
}

func New() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	s := &Sampler{proc: proc}
	// Prime the CPU delta so the first Snapshot reports a real interval.
	_, _ = proc.Percent(0)
	return s, nil
}

// Snapshot reports CPU use since the previous call, in percent of one core.
// Fields that fail to sample are omitted.
func (s *Sampler) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{
		"goroutines": runtime.NumGoroutine(),
	}
	if cpu, err := s.proc.Percent(0); err == nil {
		out["cpu_percent"] = cpu
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "Sampler.Snapshot",
			"error":    err,
		}).Debug("CPU sample failed")
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		out["rss_bytes"] = mem.RSS
	}
	if threads, err := s.proc.NumThreads(); err == nil {
		out["threads"] = threads
	}
	return out
}
