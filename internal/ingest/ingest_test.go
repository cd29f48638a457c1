package ingest

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi-chaos-go/internal/types"
)

func TestDecodeMessageVideo(t *testing.T) {
	payload, err := cbor.Marshal(types.Message{
		Type:       "video",
		Source:     "Chaos",
		Sequence:   7,
		Index:      6,
		Width:      2,
		Height:     1,
		Stride:     4,
		FourCC:     types.FourCCUYVY,
		FrameRateN: 25,
		FrameRateD: 1,
		Timecode:   42,
		Data:       []byte{128, 16, 128, 16},
	})
	require.NoError(t, err)

	msg, err := decodeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, "video", msg.Type)
	assert.Equal(t, "Chaos", msg.Source)
	assert.Equal(t, uint64(7), msg.Sequence)
	assert.Equal(t, 6, msg.Index)
	assert.Equal(t, int64(42), msg.Timecode)
	assert.Equal(t, types.FourCCUYVY, msg.FourCC)
	assert.Len(t, msg.Data, 4)
}

func TestDecodeMessageDescriptorOnly(t *testing.T) {
	payload, err := cbor.Marshal(types.Message{Type: "video", Width: 4, Height: 4, Stride: 8})
	require.NoError(t, err)
	msg, err := decodeMessage(payload)
	require.NoError(t, err)
	assert.Empty(t, msg.Data)
}

func TestDecodeMessageLifecycle(t *testing.T) {
	for _, kind := range []string{"start", "end"} {
		payload, err := cbor.Marshal(types.Message{Type: kind, Source: "Chaos"})
		require.NoError(t, err)
		msg, err := decodeMessage(payload)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, msg.Type)
	}
}

func TestDecodeMessageRejects(t *testing.T) {
	unknown, err := cbor.Marshal(map[string]any{"type": "image"})
	require.NoError(t, err)
	_, err = decodeMessage(unknown)
	assert.ErrorIs(t, err, ErrUnknownType)

	badSize, err := cbor.Marshal(types.Message{Type: "video", Width: 2, Height: 2, Stride: 4, Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	_, err = decodeMessage(badSize)
	assert.Error(t, err)

	noDims, err := cbor.Marshal(types.Message{Type: "video"})
	require.NoError(t, err)
	_, err = decodeMessage(noDims)
	assert.Error(t, err)

	_, err = decodeMessage([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestRateLoggerEvery(t *testing.T) {
	l := &rateLogger{every: 3}
	for i := 0; i < 7; i++ {
		l.warn("x", nil)
	}
	assert.Equal(t, uint64(7), l.count.Load())
}
