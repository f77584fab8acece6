// Package health probes the completer's dependencies and serves liveness and
// readiness endpoints over the aggregate.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// rank orders statuses so the report can keep the worst one.
func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check probes one dependency.
type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// readyTimeout bounds a whole readiness probe.
const readyTimeout = 5 * time.Second

type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewChecker() *Checker {
	return &Checker{checks: map[string]Check{}}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

func (c *Checker) snapshot() map[string]Check {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		out[name] = check
	}
	return out
}

// Run probes every registered dependency in parallel. The report carries the
// worst component status.
func (c *Checker) Run(ctx context.Context) Report {
	checks := c.snapshot()

	type result struct {
		name string
		ch   ComponentHealth
	}
	results := make(chan result, len(checks))
	for name, check := range checks {
		go func() {
			began := time.Now()
			ch := check(ctx)
			ch.Latency = time.Since(began).Round(time.Millisecond).String()
			results <- result{name: name, ch: ch}
		}()
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.ch
		if r.ch.Status.rank() > report.Status.rank() {
			report.Status = r.ch.Status
		}
	}
	return report
}

// PingCheck turns a ping function into a Check. failStatus is what a failed
// ping reports; optional dependencies use StatusDegraded.
func PingCheck(ping func(ctx context.Context) error, failStatus Status) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failStatus, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// DirCheck is down unless dir is an existing directory.
func DirCheck(dir string) Check {
	return func(context.Context) ComponentHealth {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		case !info.IsDir():
			return ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("%s is not a directory", dir)}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler returns 503 only when a component is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		report := c.Run(ctx)
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		respond(w, code, report)
	}
}

func respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
