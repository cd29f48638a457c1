package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"ndi-chaos-go/internal/scheduler"
)

const prompt = "Command > "

// maxLineBytes bounds one command line.
const maxLineBytes = 4096

var ErrLineTooLong = errors.New("line too long")

// Console reads operator commands line by line. A failing command is
// reported and the loop keeps reading.
type Console struct {
	channel *Channel
	in      io.Reader
	out     io.Writer
}

func NewConsole(channel *Channel, in io.Reader, out io.Writer) *Console {
	return &Console{channel: channel, in: in, out: out}
}

// Run returns after quit, at end of input, or when ctx is done. Input is read
// on a separate goroutine so ctx can interrupt a blocked read.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan inputLine)
	readErr := make(chan error, 1)
	go func() {
		br := bufio.NewReader(c.in)
		for {
			text, err := readLine(br, maxLineBytes)
			if err != nil && !errors.Is(err, ErrLineTooLong) {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
			select {
			case lines <- inputLine{text: text, err: err}:
			case <-ctx.Done():
				return
			case <-c.channel.Quitting():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, prompt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.channel.Quitting():
			return nil
		case err := <-readErr:
			fmt.Fprintln(c.out)
			if err != nil {
				return fmt.Errorf("read console: %w", err)
			}
			return nil
		case line := <-lines:
			if line.err != nil {
				c.report(line.text, line.err)
				continue
			}
			c.dispatch(line.text)
			select {
			case <-c.channel.Quitting():
				return nil
			default:
			}
		}
	}
}

type inputLine struct {
	text string
	err  error
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed through its newline and reported as ErrLineTooLong.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var (
		line    []byte
		read    bool
		tooLong bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		read = read || len(chunk) > 0
		if !tooLong {
			if len(line)+len(chunk) > limit+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			// Unterminated final line.
		case err != nil:
			return "", err
		}
		if tooLong {
			return "", fmt.Errorf("%w (limit %d bytes)", ErrLineTooLong, limit)
		}
		return strings.TrimRight(string(line), "\r\n"), nil
	}
}

func (c *Console) dispatch(line string) {
	msg, err := c.channel.Execute(line)
	if err != nil {
		c.report(line, err)
		return
	}
	if msg != "" {
		fmt.Fprintln(c.out, msg)
	}
}

func (c *Console) report(line string, err error) {
	if errors.Is(err, scheduler.ErrClockedByProtocol) {
		fmt.Fprintf(c.out, "WARNING: %v\n", err)
	} else {
		fmt.Fprintf(c.out, "Error when executing command: %v\n", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "Console.report",
		"line":     line,
		"error":    err,
	}).Debug("Command failed")
}
