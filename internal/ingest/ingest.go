// Package ingest subscribes to a chaos sender's ZMQ stream and decodes its
// CBOR messages.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/types"
)

// pollInterval bounds how long a blocked receive delays shutdown.
const pollInterval = 200 * time.Millisecond

var ErrUnknownType = errors.New("unknown message type")

// Stream connects a SUB socket to endpoint and yields every decoded
// message. The channel closes when ctx is cancelled.
func Stream(ctx context.Context, endpoint string) (<-chan types.ReceivedFrame, error) {
	return StreamWithLogEvery(ctx, endpoint, 1)
}

// StreamWithLogEvery is Stream with receive and decode errors logged only
// once per logEvery occurrences.
func StreamWithLogEvery(ctx context.Context, endpoint string, logEvery int) (<-chan types.ReceivedFrame, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetRcvtimeo(pollInterval); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSubscribe(""); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}

	logger := &rateLogger{every: uint64(logEvery)}
	out := make(chan types.ReceivedFrame, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				logger.warn("Receive failed", err)
				continue
			}
			receivedAt := time.Now().UnixNano()

			decoded, err := decodeMessage(msg)
			if err != nil {
				logger.warn("Decode skipped message", err)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- types.ReceivedFrame{Message: decoded, ReceivedAt: receivedAt}:
			}
		}
	}()

	return out, nil
}

func decodeMessage(payload []byte) (types.Message, error) {
	var msg types.Message
	if err := cbor.Unmarshal(payload, &msg); err != nil {
		return types.Message{}, fmt.Errorf("cbor decode: %w", err)
	}
	switch msg.Type {
	case "start", "end":
	case "video":
		if msg.Width <= 0 || msg.Height <= 0 {
			return types.Message{}, fmt.Errorf("video message with %dx%d dimensions", msg.Width, msg.Height)
		}
		if len(msg.Data) > 0 && len(msg.Data) != msg.Stride*msg.Height {
			return types.Message{}, fmt.Errorf("video payload is %d bytes, want %d", len(msg.Data), msg.Stride*msg.Height)
		}
	default:
		return types.Message{}, fmt.Errorf("%w %q", ErrUnknownType, msg.Type)
	}
	return msg, nil
}

type rateLogger struct {
	every uint64
	count atomic.Uint64
}

func (l *rateLogger) warn(msg string, err error) {
	n := l.count.Add(1)
	if (n-1)%l.every != 0 {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":    "ingest.Stream",
		"error":       err,
		"occurrences": n,
	}).Warn(msg)
}
