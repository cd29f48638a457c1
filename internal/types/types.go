package types

// FourCCUYVY tags packed 4:2:2 buffers in U, Y0, V, Y1 byte order.
const FourCCUYVY = "UYVY"

// PackedFrame is a UYVY buffer of Width*Height*2 bytes with a row stride of Width*2.
type PackedFrame struct {
	Width  int
	Height int
	Data   []byte
}

// Stride returns the row length in bytes.
func (p PackedFrame) Stride() int {
	return p.Width * 2
}

// AlphaPlane holds one straight alpha byte per pixel, Width*Height bytes.
type AlphaPlane struct {
	Width  int
	Height int
	Data   []byte
}

// VideoFrame is the descriptor handed to a sink for a single send.
type VideoFrame struct {
	Index      int
	Width      int
	Height     int
	Stride     int
	FourCC     string
	FrameRateN int
	FrameRateD int
	Timecode   int64
	Data       []byte
}

// Message is the wire shape of everything a networked sink emits.
type Message struct {
	Type       string `cbor:"type" json:"type"`
	Source     string `cbor:"source" json:"source"`
	Sequence   uint64 `cbor:"sequence,omitempty" json:"sequence,omitempty"`
	SentAt     int64  `cbor:"sent_at" json:"sent_at"`
	Index      int    `cbor:"index,omitempty" json:"index,omitempty"`
	Width      int    `cbor:"width,omitempty" json:"width,omitempty"`
	Height     int    `cbor:"height,omitempty" json:"height,omitempty"`
	Stride     int    `cbor:"stride,omitempty" json:"stride,omitempty"`
	FourCC     string `cbor:"fourcc,omitempty" json:"fourcc,omitempty"`
	FrameRateN int    `cbor:"frame_rate_n,omitempty" json:"frame_rate_n,omitempty"`
	FrameRateD int    `cbor:"frame_rate_d,omitempty" json:"frame_rate_d,omitempty"`
	Timecode   int64  `cbor:"timecode" json:"timecode"`
	ClockVideo bool   `cbor:"clock_video,omitempty" json:"clock_video,omitempty"`
	Data       []byte `cbor:"data,omitempty" json:"-"`
}

// ReceivedFrame is a decoded video message plus the local arrival time.
type ReceivedFrame struct {
	Message
	ReceivedAt int64
}
