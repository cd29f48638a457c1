package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const frameLogMagic = "NDICHAOS1"

// FrameLog appends timestamped records to a file:
// magic, then per record [unix-nano u64 LE][length u32 LE][payload].
type FrameLog struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewFrameLog(outputDir string, prefix string) (*FrameLog, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if _, err := w.WriteString(frameLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FrameLog{f: f, w: w, path: filename}, nil
}

func (l *FrameLog) Path() string {
	return l.path
}

func (l *FrameLog) Record(payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return fmt.Errorf("frame log is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := l.w.Write(header[:]); err != nil {
		return err
	}
	_, err := l.w.Write(payload)
	return err
}

func (l *FrameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		l.w = nil
		return err
	}
	err := l.f.Close()
	l.w = nil
	return err
}

type LogRecord struct {
	Timestamp time.Time
	Payload   []byte
}

var ErrBadMagic = errors.New("not a frame log")

// FrameLogReader iterates the records written by FrameLog.
type FrameLogReader struct {
	r io.Reader
}

func NewFrameLogReader(r io.Reader) (*FrameLogReader, error) {
	header := make([]byte, len(frameLogMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != frameLogMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(header))
	}
	return &FrameLogReader{r: r}, nil
}

// Next returns io.EOF after the last complete record.
func (fr *FrameLogReader) Next() (LogRecord, error) {
	var meta [12]byte
	if _, err := io.ReadFull(fr.r, meta[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return LogRecord{}, io.EOF
		}
		return LogRecord{}, err
	}
	ts := int64(binary.LittleEndian.Uint64(meta[:8]))
	size := binary.LittleEndian.Uint32(meta[8:12])
	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return LogRecord{}, fmt.Errorf("read payload: %w", err)
	}
	return LogRecord{Timestamp: time.Unix(0, ts), Payload: payload}, nil
}
