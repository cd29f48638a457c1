package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/config"
	"ndi-chaos-go/internal/control"
	"ndi-chaos-go/internal/framepool"
	"ndi-chaos-go/internal/imageio"
	"ndi-chaos-go/internal/label"
	"ndi-chaos-go/internal/output"
	"ndi-chaos-go/internal/procstats"
	"ndi-chaos-go/internal/scheduler"
	"ndi-chaos-go/internal/server"
	"ndi-chaos-go/internal/sink"
	"ndi-chaos-go/internal/types"
)

const statsInterval = time.Second

func main() {
	cfg := config.Parse(os.Args[1:])
	if cfg.ShowHelp {
		fmt.Print(config.Usage)
	}
	configureLogging(cfg.LogLevel)

	fmt.Printf("Creating a sender, %d x %d @ %d fps, named %s\n", cfg.Width, cfg.Height, cfg.FrameRate, cfg.Name)
	if !cfg.ClockVideo {
		fmt.Printf("\tWARNING: Not clocking video! Adding jitter of %d to %d msec.\n", cfg.JitterLow, cfg.JitterHigh)
	}
	fmt.Printf("\tTimecode mode: %s\n", cfg.Timecode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := buildPool(cfg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err,
		}).Fatal("Failed to build frame pool")
	}

	out, closeSink, err := openSink(cfg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"sink":     cfg.Sink,
			"error":    err,
		}).Fatal("Failed to open sink")
	}
	defer closeSink()

	controls := scheduler.NewControls(cfg.ClockVideo, cfg.JitterLow, cfg.JitterHigh, cfg.Timecode)
	var opts []scheduler.Option
	if cfg.Seed != 0 {
		opts = append(opts, scheduler.WithRand(rand.New(rand.NewSource(cfg.Seed))))
	}
	sched, err := scheduler.New(scheduler.Config{Name: cfg.Name, FrameRate: cfg.FrameRate}, pool, out, controls, opts...)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err,
		}).Fatal("Failed to create scheduler")
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	channel := control.NewChannel(controls, cancelRun, sched, pool)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(runCtx); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err,
			}).Error("Scheduler stopped")
		}
	}()

	sampler, err := procstats.New()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err,
		}).Warn("Process stats unavailable")
	}
	status := func() map[string]any {
		st := sched.Snapshot()
		st["controls"] = controls.Snapshot()
		n := pool.Len()
		st["pool"] = map[string]any{
			"width":       pool.Width(),
			"height":      pool.Height(),
			"frames":      n,
			"level_first": pool.Level(0),
			"level_last":  pool.Level(n - 1),
		}
		if sampler != nil {
			st["process"] = sampler.Snapshot()
		}
		return st
	}

	if cfg.HTTPPort > 0 {
		messages := make(chan any, 16)
		wg.Add(2)
		go func() {
			defer wg.Done()
			publishStats(runCtx, messages, status)
		}()
		go func() {
			defer wg.Done()
			if err := server.Run(runCtx, cfg, messages, status, channel.Execute); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "main",
					"port":     cfg.HTTPPort,
					"error":    err,
				}).Error("HTTP server failed")
			}
		}()
	}

	console := control.NewConsole(channel, os.Stdin, os.Stdout)
	go func() {
		if err := console.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err,
			}).Warn("Console stopped; use the HTTP control or a signal to quit")
		}
	}()

	select {
	case <-ctx.Done():
		channel.Quit()
	case <-channel.Quitting():
	}
	wg.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "main",
		"stats":    sched.Snapshot(),
	}).Info("Shutdown complete")
}

func configureLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "configureLogging",
			"level":    level,
		}).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func buildPool(cfg config.AppConfig) (*framepool.Pool, error) {
	var opts []framepool.Option
	if cfg.Overlay != "" {
		img, err := imageio.DecodeRaster(cfg.Overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay: %w", err)
		}
		b := img.Bounds()
		if b.Dx() > cfg.Width || b.Dy() > cfg.Height {
			img = imageio.Fit(img, cfg.Width, cfg.Height)
		}
		opts = append(opts, framepool.WithOverlay(img))
	}
	return framepool.Build(cfg.Width, cfg.Height, cfg.FrameRate, label.NewRenderer(), opts...)
}

// openSink returns the configured sink, wrapped in a recorder when a frame
// log directory is set, and a func that releases everything it opened.
func openSink(cfg config.AppConfig) (sink.Sink, func(), error) {
	var (
		out     sink.Sink
		closers []func() error
	)
	switch cfg.Sink {
	case "null":
		out = sink.NewNullSink()
	case "zmq":
		z, err := sink.NewZMQSink(cfg.Endpoint, cfg.Payload)
		if err != nil {
			return nil, nil, err
		}
		out = z
		closers = append(closers, z.Close)
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}

	if cfg.Record != "" {
		log, err := output.NewFrameLog(cfg.Record, "frames")
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, nil, fmt.Errorf("open frame log: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "openSink",
			"path":     log.Path(),
		}).Info("Recording frame descriptors")
		out = sink.NewRecorder(out, log)
		closers = append([]func() error{log.Close}, closers...)
	}

	return out, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "openSink",
					"error":    err,
				}).Warn("Close failed")
			}
		}
	}, nil
}

func publishStats(ctx context.Context, messages chan<- any, status func() map[string]any) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case messages <- types.StatsMessage{Type: "stats", Stats: status()}:
			default:
			}
		}
	}
}
