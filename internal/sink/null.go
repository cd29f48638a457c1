package sink

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/types"
)

// NullSink accepts and discards frames. Self-clocked sources are still paced.
type NullSink struct {
	registry
	sent atomic.Uint64
}

func NewNullSink() *NullSink {
	return &NullSink{}
}

func (n *NullSink) Create(name string, clockVideo bool) (Handle, error) {
	h, _, err := n.add(name, clockVideo)
	if err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"function":    "NullSink.Create",
		"source":      name,
		"clock_video": clockVideo,
	}).Info("Created null source")
	return h, nil
}

func (n *NullSink) Send(h Handle, frame types.VideoFrame) error {
	src, err := n.get(h)
	if err != nil {
		return err
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.clockVideo {
		src.pacer.wait(frame.FrameRateN, frame.FrameRateD)
	}
	src.sequence++
	n.sent.Add(1)
	return nil
}

func (n *NullSink) Destroy(h Handle) error {
	_, err := n.remove(h)
	return err
}

// Sent is the number of frames accepted across all sources.
func (n *NullSink) Sent() uint64 {
	return n.sent.Load()
}
