package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi-chaos-go/internal/types"
)

func fakeSender(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state":             "Running",
			"source":            "Chaos",
			"frames_sent_total": 250,
			"stalls_total":      2,
			"max_gap_nanos":     int64(160 * time.Millisecond),
			"controls":          map[string]any{"timecode": "Random"},
		})
	})
	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Line string `json:"line"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(types.CommandResult{Type: "result", Line: req.Line, OK: req.Line != "x", Message: "done"})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(" ")
	assert.Error(t, err)
	_, err = NewClient("")
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestStatus(t *testing.T) {
	ts := fakeSender(t)
	c, err := NewClient(ts.URL + "/")
	require.NoError(t, err)

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{
		State:      "running",
		Source:     "Chaos",
		FramesSent: 250,
		Stalls:     2,
		MaxGapNs:   int64(160 * time.Millisecond),
	}, st)
}

func TestStatusHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	assert.ErrorContains(t, err, "http_404")
}

func TestCommand(t *testing.T) {
	ts := fakeSender(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	res, err := c.Command(context.Background(), "s 50")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "s 50", res.Line)

	res, err = c.Command(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestPollStopsOnCancel(t *testing.T) {
	ts := fakeSender(t)
	c, err := NewClient(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Poll(ctx, 10*time.Millisecond, func(st Status, err error) {
			assert.NoError(t, err)
			assert.Equal(t, uint64(250), st.FramesSent)
			calls.Add(1)
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll did not return after cancel")
	}
}
