package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/output"
)

func main() {
	var (
		path  = flag.String("path", "", "Path to a frame log .bin file")
		limit = flag.Int("limit", 0, "Number of records to dump (0 = all)")
	)
	flag.Parse()

	if *path == "" {
		logrus.Fatal("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		logrus.WithError(err).Fatal("open frame log")
	}
	defer f.Close()

	reader, err := output.NewFrameLogReader(f)
	if err != nil {
		logrus.WithError(err).Fatal("read frame log header")
	}

	var last time.Time
	for count := 0; *limit <= 0 || count < *limit; count++ {
		rec, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			logrus.WithError(err).Fatal("read record")
		}

		var decoded any
		if err := cbor.Unmarshal(rec.Payload, &decoded); err != nil {
			logrus.WithFields(logrus.Fields{"record": count, "error": err}).Warn("CBOR decode error")
			continue
		}

		entry := map[string]any{
			"record":    count,
			"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
			"message":   output.NormalizeJSONValue(decoded),
		}
		if !last.IsZero() {
			entry["gap_ms"] = float64(rec.Timestamp.Sub(last).Microseconds()) / 1000
		}
		last = rec.Timestamp

		pretty, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			logrus.WithFields(logrus.Fields{"record": count, "error": err}).Warn("JSON encode error")
			continue
		}
		fmt.Println(string(pretty))
	}
}
