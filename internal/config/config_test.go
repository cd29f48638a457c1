package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ndi-chaos-go/internal/timecode"
)

func TestParseDefaults(t *testing.T) {
	cfg := Parse(nil)
	assert.True(t, cfg.ShowHelp)
	assert.Equal(t, 1920, cfg.Width)
	assert.Equal(t, 1080, cfg.Height)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.True(t, cfg.ClockVideo)
	assert.Equal(t, 0, cfg.JitterLow)
	assert.Equal(t, 0, cfg.JitterHigh)
	assert.Equal(t, timecode.ModeSynthesize, cfg.Timecode)
	assert.Equal(t, "Chaos", cfg.Name)
	assert.Equal(t, "zmq", cfg.Sink)
	assert.True(t, cfg.Payload)
}

func TestParseValues(t *testing.T) {
	cfg := Parse([]string{
		"width=1280", "HEIGHT=720", "fps=25", "clock=Override",
		"jlo=10", "jhi=50", "timecode=random", "name=Stress A",
		"sink=null", "payload=off", "http=8080", "seed=99", "log=debug",
	})
	assert.False(t, cfg.ShowHelp)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 25, cfg.FrameRate)
	assert.False(t, cfg.ClockVideo)
	assert.Equal(t, 10, cfg.JitterLow)
	assert.Equal(t, 50, cfg.JitterHigh)
	assert.Equal(t, timecode.ModeRandom, cfg.Timecode)
	assert.Equal(t, "Stress A", cfg.Name)
	assert.Equal(t, "null", cfg.Sink)
	assert.False(t, cfg.Payload)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseIgnoresUnparsableNumbers(t *testing.T) {
	cfg := Parse([]string{"width=wide", "height=", "fps=3.5", "jlo=x", "seed=abc"})
	assert.Equal(t, 1920, cfg.Width)
	assert.Equal(t, 1080, cfg.Height)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, 0, cfg.JitterLow)
	assert.Equal(t, int64(0), cfg.Seed)
}

func TestParseJitterHighDefaultsToLow(t *testing.T) {
	cfg := Parse([]string{"jlo=15"})
	assert.Equal(t, 15, cfg.JitterLow)
	assert.Equal(t, 15, cfg.JitterHigh)

	cfg = Parse([]string{"jlo=15", "jhi=nope"})
	assert.Equal(t, 15, cfg.JitterHigh)
}

func TestParseClockOtherValuesKeepClocking(t *testing.T) {
	cfg := Parse([]string{"clock=on"})
	assert.True(t, cfg.ClockVideo)
}

func TestParseHelpKeepsValues(t *testing.T) {
	cfg := Parse([]string{"help", "fps=60"})
	assert.True(t, cfg.ShowHelp)
	assert.Equal(t, 60, cfg.FrameRate)
}
