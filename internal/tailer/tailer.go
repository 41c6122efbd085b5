// Package tailer follows Steam's content_log.txt as it grows, feeding every
// complete line through the classifier into the shared tracker state.
//
// The cursor only ever advances over bytes actually consumed, so a size
// check against the path detects truncation or rotation (file smaller than
// the cursor) and triggers a bounded-window reopen. On every (re)open only
// the last windowBytes of the file are replayed; anything older is
// permanently unobserved, which keeps reopen cost bounded.
package tailer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/steamwatch/steamwatch/internal/tracker"
)

const (
	// DefaultWindowBytes is how much of the log tail is replayed on (re)open.
	DefaultWindowBytes = 200000

	defaultPollInterval = 50 * time.Millisecond
	defaultErrBackoff   = 200 * time.Millisecond
)

type Tailer struct {
	path         string
	state        *tracker.State
	windowBytes  int64
	pollInterval time.Duration
	errBackoff   time.Duration

	file    *os.File
	reader  *bufio.Reader
	pos     int64
	partial []byte
}

// Option mutates a Tailer during construction.
type Option func(*Tailer)

func WithWindowBytes(n int64) Option {
	return func(t *Tailer) { t.windowBytes = n }
}

func WithPollInterval(d time.Duration) Option {
	return func(t *Tailer) { t.pollInterval = d }
}

func WithErrorBackoff(d time.Duration) Option {
	return func(t *Tailer) { t.errBackoff = d }
}

func New(path string, state *tracker.State, opts ...Option) *Tailer {
	t := &Tailer{
		path:         path,
		state:        state,
		windowBytes:  DefaultWindowBytes,
		pollInterval: defaultPollInterval,
		errBackoff:   defaultErrBackoff,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run tails the log until ctx is cancelled. Failing to open the log on
// startup is the only fatal condition; everything after that is retried.
// The file handle is released before Run returns.
func (t *Tailer) Run(ctx context.Context) error {
	if err := t.reopen(); err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	defer t.close()

	log.Printf("Tailing %s from offset %d", t.path, t.pos)

	for {
		if ctx.Err() != nil {
			return nil
		}

		size, err := fileSize(t.path)
		if err != nil {
			// Producer may hold the file briefly; treat as transient.
			if !sleep(ctx, t.errBackoff) {
				return nil
			}
			continue
		}

		if size < t.pos {
			log.Printf("%s shrank (%d < %d), assuming rotation, reopening", t.path, size, t.pos)
			if err := t.reopen(); err != nil {
				if !sleep(ctx, t.errBackoff) {
					return nil
				}
				continue
			}
		}

		line, ok := t.readLine()
		if !ok {
			if !sleep(ctx, t.pollInterval) {
				return nil
			}
			continue
		}
		t.apply(line)
	}
}

// reopen (re)establishes the cursor at max(0, size-windowBytes) and replays
// every complete line from there, rebuilding tracker state from the recent
// window only.
func (t *Tailer) reopen() error {
	t.close()

	f, err := os.Open(t.path)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	start := info.Size() - t.windowBytes
	if start < 0 {
		start = 0
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return err
	}

	t.file = f
	t.reader = bufio.NewReader(f)
	t.pos = start
	t.partial = nil

	// A mid-file start lands inside some line; skip its remainder to
	// realign on a boundary.
	if start > 0 {
		if skipped, err := t.reader.ReadBytes('\n'); err == nil {
			t.pos += int64(len(skipped))
		} else {
			t.pos += int64(len(skipped))
			return nil
		}
	}

	for {
		line, ok := t.readLine()
		if !ok {
			return nil
		}
		t.apply(line)
	}
}

// readLine consumes the next complete line, advancing the cursor over every
// byte read. A trailing fragment with no newline yet is carried until the
// producer finishes the line.
func (t *Tailer) readLine() (string, bool) {
	chunk, err := t.reader.ReadBytes('\n')
	t.pos += int64(len(chunk))

	if err != nil {
		// Incomplete line: keep the fragment, wait for the rest.
		if len(chunk) > 0 {
			t.partial = append(t.partial, chunk...)
		}
		return "", false
	}

	line := chunk
	if len(t.partial) > 0 {
		line = append(t.partial, chunk...)
		t.partial = nil
	}
	return string(line), true
}

func (t *Tailer) apply(line string) {
	ev, ok := tracker.Classify(trimLine(line))
	if !ok {
		return
	}
	t.state.Apply(ev, time.Now())
}

func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
		t.reader = nil
	}
}

func trimLine(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// sleep waits for d or until ctx is cancelled; it reports false on
// cancellation so loops can exit within one interval.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
