package sink

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/types"
)

// ZMQSink publishes CBOR messages on a PUB socket. Every source produces a
// "start" message, one "video" message per frame and an "end" message.
// PUB never blocks on slow or absent subscribers, so Send is bounded.
type ZMQSink struct {
	registry
	sockMu         sync.Mutex
	socket         *zmq4.Socket
	includePayload bool
}

func NewZMQSink(endpoint string, includePayload bool) (*ZMQSink, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("create zmq socket: %w", err)
	}
	if err := socket.SetSndhwm(8); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("set send high-water mark: %w", err)
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("set linger: %w", err)
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "NewZMQSink",
		"endpoint": endpoint,
		"payload":  includePayload,
	}).Info("ZMQ sink bound")
	return &ZMQSink{socket: socket, includePayload: includePayload}, nil
}

func (z *ZMQSink) Create(name string, clockVideo bool) (Handle, error) {
	h, src, err := z.add(name, clockVideo)
	if err != nil {
		return 0, err
	}
	if err := z.publish(newMessage("start", src, types.VideoFrame{}, false)); err != nil {
		_, _ = z.remove(h)
		return 0, err
	}
	return h, nil
}

func (z *ZMQSink) Send(h Handle, frame types.VideoFrame) error {
	src, err := z.get(h)
	if err != nil {
		return err
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.clockVideo {
		src.pacer.wait(frame.FrameRateN, frame.FrameRateD)
	}
	src.sequence++
	return z.publish(newMessage("video", src, frame, z.includePayload))
}

func (z *ZMQSink) Destroy(h Handle) error {
	src, err := z.remove(h)
	if err != nil {
		return err
	}
	return z.publish(newMessage("end", src, types.VideoFrame{}, false))
}

// Close releases the socket. Outstanding handles become invalid.
func (z *ZMQSink) Close() error {
	z.close()
	z.sockMu.Lock()
	defer z.sockMu.Unlock()
	if z.socket == nil {
		return nil
	}
	err := z.socket.Close()
	z.socket = nil
	return err
}

func (z *ZMQSink) publish(msg types.Message) error {
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	z.sockMu.Lock()
	defer z.sockMu.Unlock()
	if z.socket == nil {
		return ErrClosed
	}
	if _, err := z.socket.SendBytes(payload, 0); err != nil {
		return fmt.Errorf("publish %s message: %w", msg.Type, err)
	}
	return nil
}
