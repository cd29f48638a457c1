// Package framepool pre-renders the ring of frames the scheduler cycles
// through, so steady-state playback never renders or converts.
package framepool

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"ndi-chaos-go/internal/colorspace"
	"ndi-chaos-go/internal/types"
)

var ErrInvalidDimensions = errors.New("framepool: width, height and frame rate must be positive")

// LabelRenderer draws text centered on both axes of dst.
type LabelRenderer interface {
	Render(dst *image.NRGBA, text string) error
}

type Option func(*options)

type options struct {
	overlay *image.NRGBA
}

// WithOverlay composites img over the top-left corner of every frame.
func WithOverlay(img *image.NRGBA) Option {
	return func(o *options) {
		o.overlay = img
	}
}

type Pool struct {
	mu     sync.RWMutex
	width  int
	height int
	frames []types.PackedFrame
	levels []uint8
}

// Build renders frameRate frames. A failure on any frame discards the whole
// pool.
func Build(width, height, frameRate int, renderer LabelRenderer, opts ...Option) (*Pool, error) {
	if width <= 0 || height <= 0 || frameRate <= 0 {
		return nil, fmt.Errorf("%w: %dx%d @ %d", ErrInvalidDimensions, width, height, frameRate)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "framepool.Build",
		"width":      width,
		"height":     height,
		"frame_rate": frameRate,
	}).Info("Rendering frame pool")

	pool := &Pool{
		width:  width,
		height: height,
		frames: make([]types.PackedFrame, frameRate),
		levels: make([]uint8, frameRate),
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < frameRate; i++ {
		level := Level(i, frameRate)
		fill(canvas, color.NRGBA{R: 0, G: 0, B: level, A: 255})
		if o.overlay != nil {
			draw.Draw(canvas, o.overlay.Bounds(), o.overlay, o.overlay.Bounds().Min, draw.Over)
		}
		if renderer != nil {
			if err := renderer.Render(canvas, strconv.Itoa(i)); err != nil {
				return nil, fmt.Errorf("render label %d: %w", i, err)
			}
		}
		frame, _ := colorspace.ToUYVY(canvas, false)
		pool.frames[i] = frame
		pool.levels[i] = level
	}

	logrus.WithFields(logrus.Fields{
		"function": "framepool.Build",
		"frames":   frameRate,
		"bytes":    frameRate * width * height * 2,
	}).Debug("Frame pool ready")
	return pool, nil
}

// Level is the background channel value of frame i in a pool of n frames.
func Level(i, n int) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(math.Round(255 * float64(i) / float64(n-1)))
}

func fill(img *image.NRGBA, c color.NRGBA) {
	px := []byte{c.R, c.G, c.B, c.A}
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px)
	}
}

// Len is the number of frames, zero after Release.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.frames)
}

func (p *Pool) Width() int  { return p.width }
func (p *Pool) Height() int { return p.height }

// Frame returns frame i. ok is false after Release or when i is out of range.
func (p *Pool) Frame(i int) (types.PackedFrame, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.frames) {
		return types.PackedFrame{}, false
	}
	return p.frames[i], true
}

// Level returns the background channel value rendered into frame i.
func (p *Pool) Level(i int) uint8 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i < 0 || i >= len(p.levels) {
		return 0
	}
	return p.levels[i]
}

// Release drops every buffer. Callers release only after the scheduler has
// stopped.
func (p *Pool) Release() {
	p.mu.Lock()
	n := len(p.frames)
	p.frames = nil
	p.levels = nil
	p.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"function": "Pool.Release",
		"frames":   n,
	}).Debug("Frame pool released")
}
