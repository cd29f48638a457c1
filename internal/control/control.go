// Package control is the operator surface of a running generator. Commands
// mutate the scheduler's shared Controls and take effect on its next
// iteration; quit stops the scheduler and then releases the frame pool.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/config"
	"ndi-chaos-go/internal/scheduler"
	"ndi-chaos-go/internal/timecode"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformed      = errors.New("malformed command")
)

// Stopper is the running scheduler as seen by the control surface.
type Stopper interface {
	State() scheduler.State
	Done() <-chan struct{}
}

// Releaser frees the frame pool.
type Releaser interface {
	Release()
}

type Channel struct {
	controls *scheduler.Controls
	cancel   func()
	sched    Stopper
	pool     Releaser

	quitOnce sync.Once
	quit     chan struct{}
}

func NewChannel(controls *scheduler.Controls, cancel func(), sched Stopper, pool Releaser) *Channel {
	return &Channel{
		controls: controls,
		cancel:   cancel,
		sched:    sched,
		pool:     pool,
		quit:     make(chan struct{}),
	}
}

func (c *Channel) RequestStall(ms int) {
	c.controls.RequestStall(ms)
	logrus.WithFields(logrus.Fields{
		"function": "Channel.RequestStall",
		"stall_ms": ms,
	}).Debug("Stall requested")
}

// SetJitterBounds is a no-op returning scheduler.ErrClockedByProtocol when
// the sink clocks video.
func (c *Channel) SetJitterBounds(low, high int) error {
	if err := c.controls.SetJitter(low, high); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"function":       "Channel.SetJitterBounds",
		"jitter_low_ms":  low,
		"jitter_high_ms": high,
	}).Debug("Jitter updated")
	return nil
}

func (c *Channel) SetTimecodeMode(mode timecode.Mode) {
	c.controls.SetMode(mode)
}

// Quit cancels the scheduler, waits for it to stop, then releases the pool.
// Later calls return immediately.
func (c *Channel) Quit() {
	c.quitOnce.Do(func() {
		c.cancel()
		if c.sched != nil && c.sched.State() != scheduler.StateIdle {
			<-c.sched.Done()
		}
		if c.pool != nil {
			c.pool.Release()
		}
		close(c.quit)
		logrus.WithField("function", "Channel.Quit").Info("Generator stopped")
	})
}

// Quitting is closed once Quit has completed.
func (c *Channel) Quitting() <-chan struct{} {
	return c.quit
}

// Execute runs one command line and returns the text to show the operator.
func (c *Channel) Execute(line string) (string, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "q":
		c.Quit()
		return "Quitting.", nil
	case "?":
		return config.CommandHelp, nil
	case "s":
		ms := 0
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				return "", fmt.Errorf("%w: stall duration %q", ErrMalformed, fields[len(fields)-1])
			}
			ms = n
		}
		c.RequestStall(ms)
		if ms > 0 {
			return fmt.Sprintf("Stall of %d msec requested.", ms), nil
		}
		return "Stall requested.", nil
	case "j":
		if c.controls.ClockedByProtocol() {
			return "", scheduler.ErrClockedByProtocol
		}
		if len(fields) < 3 {
			return "", fmt.Errorf("%w: usage j <low> <high>", ErrMalformed)
		}
		low, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", fmt.Errorf("%w: jitter low %q", ErrMalformed, fields[1])
		}
		high, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", fmt.Errorf("%w: jitter high %q", ErrMalformed, fields[2])
		}
		if err := c.SetJitterBounds(low, high); err != nil {
			return "", err
		}
		return fmt.Sprintf("\tNew clock jitter is between %d to %d msec.", low, high), nil
	case "t":
		if len(fields) < 2 {
			return "", fmt.Errorf("%w: usage t <c|s|i|o|r>", ErrMalformed)
		}
		mode := timecode.ModeFromCommand(fields[1])
		c.SetTimecodeMode(mode)
		return fmt.Sprintf("Timecode mode: %s", mode), nil
	default:
		return "", fmt.Errorf("%w: %q (? for help)", ErrUnknownCommand, fields[0])
	}
}
