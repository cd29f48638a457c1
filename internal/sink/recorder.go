package sink

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/types"
)

// FrameRecorder persists one encoded record. output.FrameLog implements it.
type FrameRecorder interface {
	Record(payload []byte) error
}

// Recorder forwards to next and records every descriptor it sees, without
// pixel data. Recording failures are logged and never fail a send.
type Recorder struct {
	next Sink
	log  FrameRecorder

	mu      sync.Mutex
	sources map[Handle]*source
}

func NewRecorder(next Sink, log FrameRecorder) *Recorder {
	return &Recorder{
		next:    next,
		log:     log,
		sources: make(map[Handle]*source),
	}
}

func (r *Recorder) Create(name string, clockVideo bool) (Handle, error) {
	h, err := r.next.Create(name, clockVideo)
	if err != nil {
		return 0, err
	}
	src := &source{name: name, clockVideo: clockVideo}
	r.mu.Lock()
	r.sources[h] = src
	r.mu.Unlock()
	r.record(newMessage("start", src, types.VideoFrame{}, false))
	return h, nil
}

func (r *Recorder) Send(h Handle, frame types.VideoFrame) error {
	if err := r.next.Send(h, frame); err != nil {
		return err
	}
	r.mu.Lock()
	src, ok := r.sources[h]
	if ok {
		src.sequence++
	}
	r.mu.Unlock()
	if ok {
		r.record(newMessage("video", src, frame, false))
	}
	return nil
}

func (r *Recorder) Destroy(h Handle) error {
	r.mu.Lock()
	src, ok := r.sources[h]
	delete(r.sources, h)
	r.mu.Unlock()
	if ok {
		r.record(newMessage("end", src, types.VideoFrame{}, false))
	}
	return r.next.Destroy(h)
}

func (r *Recorder) record(msg types.Message) {
	payload, err := cbor.Marshal(msg)
	if err == nil {
		err = r.log.Record(payload)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Recorder.record",
			"type":     msg.Type,
			"error":    err,
		}).Warn("Frame log write failed")
	}
}
