// Package mock writes a synthetic content_log so the watcher can be
// exercised without a running Steam client.
package mock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

type fakeApp struct {
	id   string
	name string
}

var fakeApps = []fakeApp{
	{"10", "Counter-Strike"},
	{"440", "Team Fortress 2"},
	{"620", "Portal 2"},
}

// Generator appends plausible download lifecycle lines to a log file on a
// fixed cadence: start, a stream of rate and stats lines with an
// occasional pause/resume, then finish, then the next app.
type Generator struct {
	path     string
	interval time.Duration
	rng      *rand.Rand
}

func NewGenerator(path string, interval time.Duration) *Generator {
	return &Generator{
		path:     path,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Generator) Run(ctx context.Context) {
	log.Printf("Mock generator writing to %s", g.path)

	appIdx := 0
	tick := 0
	app := fakeApps[appIdx]
	g.append(fmt.Sprintf("AppID %s update started : download", app.id))

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			switch {
			case tick%17 == 0:
				g.append(fmt.Sprintf("AppID %s finished update", app.id))
				appIdx = (appIdx + 1) % len(fakeApps)
				app = fakeApps[appIdx]
				tick = 0
				g.append(fmt.Sprintf("AppID %s update started : download", app.id))
			case tick%11 == 0:
				g.append(fmt.Sprintf("AppID %s update canceled : user request", app.id))
			case tick%11 == 1 && tick > 1:
				g.append(fmt.Sprintf("AppID %s scheduler update changed : Downloading update", app.id))
			case tick%5 == 0:
				mbps := 20 + g.rng.Float64()*60
				g.append(fmt.Sprintf("Client download stats: (Invalid, 0) : %d Bytes, 30 sec (%.3f Mbps).",
					int64(mbps/8*1e6*30), mbps))
			default:
				g.append(fmt.Sprintf("Current download rate: %.1f Mbps", 20+g.rng.Float64()*60))
			}
		}
	}
}

func (g *Generator) append(msg string) {
	f, err := os.OpenFile(g.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("mock append error: %v", err)
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s\n", ts, msg)
}

// Names returns a resolver view over the fake catalog, satisfying the
// reporter's NameResolver without any manifest files on disk.
type Names struct{}

func (Names) Resolve(appID string) (string, bool) {
	for _, app := range fakeApps {
		if app.id == appID {
			return app.name, true
		}
	}
	return "", false
}
