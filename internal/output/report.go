package output

import (
	"fmt"
	"os"
	"path/filepath"

	"ndi-chaos-go/internal/analysis"
)

// WriteGapReport writes one CSV row per inter-arrival gap and returns the
// file path.
func WriteGapReport(outputDir string, runTimestamp string, source string, gaps []analysis.Gap) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	if source == "" {
		source = "unknown"
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_gaps_%s.csv", runTimestamp, sanitize(source)))
	f, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "sequence, index, received_at, interval_ms, stall"); err != nil {
		return "", err
	}
	for _, g := range gaps {
		if _, err := fmt.Fprintf(
			f,
			"%d, %d, %.6f, %.3f, %t\n",
			g.Sequence,
			g.Index,
			float64(g.At.UnixNano())/1e9,
			float64(g.Interval.Microseconds())/1000,
			g.Stall,
		); err != nil {
			return "", err
		}
	}
	return filename, f.Close()
}

func sanitize(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
