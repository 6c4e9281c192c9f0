/*
scheduler.go - Periodic roster status reporter

PURPOSE:
  Periodically aggregates today's status for every manager's roster and
  publishes the bucket sizes as Prometheus gauges and a log line, so
  dashboards see who is working, on leave or waiting on a decision without
  polling the status endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reports once immediately on start
  - A manager whose roster fails to load is logged and skipped

CONFIGURATION:
  - CheckInterval: How often to report (default: 1 hour)
  - Enabled: Whether the reporter is active (default: true)

USAGE:
  reporter := NewRosterReporter(handler)
  reporter.Start()
  // ... later
  reporter.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
)

// RosterReporter publishes per-manager status counts on a ticker.
type RosterReporter struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRosterReporter creates a new reporter.
func NewRosterReporter(handler *Handler) *RosterReporter {
	return &RosterReporter{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the reporter.
func (rr *RosterReporter) Start() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	log := rr.Handler.Log.WithField("component", "reporter")
	if !rr.Enabled {
		log.Info("disabled, not starting")
		return
	}
	if rr.ticker != nil {
		return
	}

	rr.ticker = time.NewTicker(rr.CheckInterval)
	rr.stop = make(chan struct{})
	rr.wg.Add(1)

	go rr.run()

	log.WithField("interval", rr.CheckInterval).Info("started")
}

// Stop stops the reporter and waits for an in-flight report to finish.
func (rr *RosterReporter) Stop() {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if rr.ticker != nil {
		rr.ticker.Stop()
		close(rr.stop)
		rr.wg.Wait()
		rr.ticker = nil
		rr.Handler.Log.WithField("component", "reporter").Info("stopped")
	}
}

func (rr *RosterReporter) run() {
	defer rr.wg.Done()

	// Report immediately on start
	rr.RunNow(context.Background())

	for {
		select {
		case <-rr.ticker.C:
			rr.RunNow(context.Background())
		case <-rr.stop:
			return
		}
	}
}

// RunNow aggregates every roster for today and returns the counts it
// published, keyed by manager.
func (rr *RosterReporter) RunNow(ctx context.Context) map[leave.EmployeeID]leave.StatusCounts {
	h := rr.Handler
	log := h.Log.WithField("component", "reporter")
	today := leave.DayOf(h.Now())

	managers, err := h.Store.ListManagers(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list managers")
		return nil
	}

	report := make(map[leave.EmployeeID]leave.StatusCounts, len(managers))
	for _, m := range managers {
		buckets, err := h.Directory.Status(ctx, m.ID, today)
		if err != nil {
			log.WithError(err).WithField("manager_id", m.ID).Warn("failed to aggregate roster")
			continue
		}

		counts := buckets.Counts()
		report[m.ID] = counts
		h.Metrics.SetRoster(m.ID, counts)
		log.WithFields(logrus.Fields{
			"manager_id":    m.ID,
			"date":          today.String(),
			"working":       counts.Working,
			"on_leave":      counts.OnLeave,
			"pending_leave": counts.PendingLeave,
		}).Info("roster status")
	}
	return report
}
