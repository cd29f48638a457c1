package config

import (
	"strconv"
	"strings"

	"ndi-chaos-go/internal/timecode"
)

type AppConfig struct {
	Width      int
	Height     int
	FrameRate  int
	ClockVideo bool
	JitterLow  int
	JitterHigh int
	Timecode   timecode.Mode
	Name       string

	Sink     string
	Endpoint string
	Payload  bool
	Record   string
	HTTPPort int
	Overlay  string
	Seed     int64
	LogLevel string

	ShowHelp bool
}

func Default() AppConfig {
	return AppConfig{
		Width:      1920,
		Height:     1080,
		FrameRate:  30,
		ClockVideo: true,
		Timecode:   timecode.ModeSynthesize,
		Name:       "Chaos",
		Sink:       "zmq",
		Endpoint:   "tcp://*:5560",
		Payload:    true,
		LogLevel:   "info",
	}
}

// Parse reads key=value arguments. Keys are case-insensitive, the last
// occurrence wins, and values that fail to parse leave the default in place.
func Parse(args []string) AppConfig {
	cfg := Default()
	values := parseArguments(args)
	if len(args) == 0 {
		cfg.ShowHelp = true
	}
	for _, arg := range args {
		if strings.EqualFold(strings.TrimSpace(arg), "help") {
			cfg.ShowHelp = true
		}
	}

	setInt(values, "width", &cfg.Width)
	setInt(values, "height", &cfg.Height)
	setInt(values, "fps", &cfg.FrameRate)
	if v, ok := values["clock"]; ok && strings.EqualFold(v, "override") {
		cfg.ClockVideo = false
	}
	setInt(values, "jlo", &cfg.JitterLow)
	cfg.JitterHigh = cfg.JitterLow
	setInt(values, "jhi", &cfg.JitterHigh)
	if v, ok := values["timecode"]; ok {
		cfg.Timecode = timecode.ParseMode(v)
	}
	if v, ok := values["name"]; ok {
		cfg.Name = v
	}

	if v, ok := values["sink"]; ok && v != "" {
		cfg.Sink = strings.ToLower(v)
	}
	if v, ok := values["endpoint"]; ok && v != "" {
		cfg.Endpoint = v
	}
	if v, ok := values["payload"]; ok {
		switch strings.ToLower(v) {
		case "off", "false", "no", "0":
			cfg.Payload = false
		case "on", "true", "yes", "1":
			cfg.Payload = true
		}
	}
	if v, ok := values["record"]; ok {
		cfg.Record = v
	}
	setInt(values, "http", &cfg.HTTPPort)
	if v, ok := values["overlay"]; ok {
		cfg.Overlay = v
	}
	if v, ok := values["seed"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v, ok := values["log"]; ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg
}

func parseArguments(args []string) map[string]string {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return out
}

func setInt(values map[string]string, key string, dst *int) {
	v, ok := values[key]
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}
