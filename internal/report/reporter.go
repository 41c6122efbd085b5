// Package report renders the periodic status line from tracker snapshots.
// The cadence is wall-clock driven and independent of log activity: the
// tailer keeps state current, the reporter only decides what to say.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/steamwatch/steamwatch/internal/tracker"
)

const timestampLayout = "2006-01-02 15:04:05"

// NameResolver maps an app ID to its display name. ok is false when the
// app is unknown, which the reporter treats as "nothing to report".
type NameResolver interface {
	Resolve(appID string) (name string, ok bool)
}

type Reporter struct {
	state      *tracker.State
	resolver   NameResolver
	out        io.Writer
	interval   time.Duration
	staleAfter time.Duration
	notify     func(line string)
}

// Option mutates a Reporter during construction.
type Option func(*Reporter)

// WithNotify registers a hook invoked with every rendered report line,
// after it has been written to the sink.
func WithNotify(fn func(line string)) Option {
	return func(r *Reporter) { r.notify = fn }
}

func WithStaleAfter(d time.Duration) Option {
	return func(r *Reporter) { r.staleAfter = d }
}

func New(state *tracker.State, resolver NameResolver, out io.Writer, interval time.Duration, opts ...Option) *Reporter {
	r := &Reporter{
		state:      state,
		resolver:   resolver,
		out:        out,
		interval:   interval,
		staleAfter: 300 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run emits one status line per interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.emit(time.Now())
		}
	}
}

func (r *Reporter) emit(now time.Time) {
	line := fmt.Sprintf("[%s] %s", now.Format(timestampLayout), r.message(now))
	fmt.Fprintln(r.out, line)
	if r.notify != nil {
		r.notify(line)
	}
}

// message builds the report body for one tick: the active app's name and
// status, with the speed rendered only when the live sample is fresh.
func (r *Reporter) message(now time.Time) string {
	snap := r.state.Snapshot()

	app, ok := snap.Active()
	if !ok {
		return "nothing active"
	}

	name, ok := r.resolver.Resolve(app)
	if !ok {
		// An app we cannot name is not worth reporting.
		return "nothing active"
	}

	status, known := snap.EffectiveStatus(app)
	label := "unknown"
	if known {
		label = status.String()
	}

	if known && status == tracker.Paused {
		return fmt.Sprintf("%s | %s", name, label)
	}

	if !snap.SpeedFresh(now, r.staleAfter) {
		return fmt.Sprintf("%s | %s | speed: ?", name, label)
	}
	return fmt.Sprintf("%s | %s | speed: %.3f Mbps", name, label, snap.Speed.Mbps)
}
