package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/analysis"
	"ndi-chaos-go/internal/ingest"
	"ndi-chaos-go/internal/output"
	"ndi-chaos-go/internal/remote"
)

func main() {
	var (
		endpoint    = flag.String("endpoint", "tcp://localhost:5560", "ZMQ endpoint of the chaos sender")
		interval    = flag.Duration("interval", 5*time.Second, "Stats log interval")
		stallFactor = flag.Float64("stall-factor", analysis.DefaultStallFactor, "Gap, in nominal frame periods, that counts as a stall")
		retain      = flag.Int("retain", 1<<16, "Number of gaps kept for the report")
		reportDir   = flag.String("report-dir", "", "Write a gap CSV here on exit")
		logEvery    = flag.Int("log-every", 100, "Log every Nth receive or decode error")
		logLevel    = flag.String("log", "info", "Log level")
		controlURL  = flag.String("control", "", "Sender HTTP base URL; when set its /status is logged alongside local stats")
	)
	flag.Parse()

	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames, err := ingest.StreamWithLogEvery(ctx, *endpoint, *logEvery)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"endpoint": *endpoint,
			"error":    err,
		}).Fatal("Failed to subscribe")
	}
	logrus.WithFields(logrus.Fields{
		"function": "main",
		"endpoint": *endpoint,
	}).Info("Listening")

	if *controlURL != "" {
		client, err := remote.NewClient(*controlURL)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err,
			}).Fatal("Invalid control URL")
		}
		go client.Poll(ctx, *interval, logSenderStatus)
	}

	agg := analysis.NewAggregator(*stallFactor, *retain)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var lastStalls uint64
loop:
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				break loop
			}
			if frame.Type != "video" {
				logrus.WithFields(logrus.Fields{
					"function": "main",
					"type":     frame.Type,
					"source":   frame.Source,
				}).Info("Source lifecycle")
			}
			agg.AddFrame(frame)
			if stalls := agg.Stalls(); stalls > lastStalls {
				lastStalls = stalls
				g, _ := agg.LastGap()
				logrus.WithFields(logrus.Fields{
					"function": "main",
					"sequence": g.Sequence,
					"index":    g.Index,
					"gap_ms":   g.Interval.Milliseconds(),
				}).Warn("Stall observed")
			}
		case <-ticker.C:
			logSummary(agg.Snapshot())
		}
	}

	summary := agg.Snapshot()
	logSummary(summary)
	if *reportDir != "" {
		path, err := output.WriteGapReport(*reportDir, time.Now().Format("20060102_150405"), summary.Source, agg.Gaps())
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "main",
				"error":    err,
			}).Error("Failed to write gap report")
			return
		}
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"path":     path,
		}).Info("Gap report written")
	}
}

func logSummary(s analysis.Summary) {
	logrus.WithFields(logrus.Fields{
		"source":       s.Source,
		"frames":       s.Frames,
		"dropped":      s.Dropped,
		"stalls":       s.Stalls,
		"tc_repeated":  s.RepeatedTimecode,
		"tc_backwards": s.NonMonotonic,
		"tc_invalid":   s.InvalidTimecode,
		"mean_gap_ms":  float64(s.MeanGap.Microseconds()) / 1000,
		"p99_gap_ms":   float64(s.P99Gap.Microseconds()) / 1000,
		"max_gap_ms":   float64(s.MaxGap.Microseconds()) / 1000,
		"nominal_ms":   float64(s.Nominal.Microseconds()) / 1000,
	}).Info("Stream stats")
}

func logSenderStatus(st remote.Status, err error) {
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "logSenderStatus",
			"error":    err,
		}).Warn("Sender status unavailable")
		return
	}
	logrus.WithFields(logrus.Fields{
		"source":      st.Source,
		"state":       st.State,
		"frames_sent": st.FramesSent,
		"stalls":      st.Stalls,
		"send_errors": st.SendErrors,
		"max_gap_ms":  float64(st.MaxGapNs) / 1e6,
	}).Info("Sender stats")
}
