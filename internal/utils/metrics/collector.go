// internal/utils/metrics/collector.go
package metrics

import (
	"strconv"
	"time"
)

// Collector records pipeline metrics. The zero value is ready to use and a nil
// *Collector is a no-op, so components can run without metrics in tests.
type Collector struct{}

// NewCollector returns a collector backed by the default registry.
func NewCollector() *Collector {
	return &Collector{}
}

// FeedPoll records the outcome of one feed fetch.
func (c *Collector) FeedPoll(ok bool) {
	if c == nil {
		return
	}
	feedPolls.WithLabelValues(result(ok)).Inc()
}

// Admitted records an opportunity that passed the filter.
func (c *Collector) Admitted() {
	if c == nil {
		return
	}
	opportunities.WithLabelValues("admitted", "").Inc()
}

// Rejected records an opportunity that failed the filter or was skipped.
func (c *Collector) Rejected(reason string) {
	if c == nil {
		return
	}
	opportunities.WithLabelValues("rejected", reason).Inc()
}

// Entry records an entry attempt.
func (c *Collector) Entry(ok bool) {
	if c == nil {
		return
	}
	entries.WithLabelValues(result(ok)).Inc()
}

// Exit records an exit execution for the given reason.
func (c *Collector) Exit(reason string, ok bool) {
	if c == nil {
		return
	}
	exits.WithLabelValues(reason, result(ok)).Inc()
}

// ProbeFailed records a failed price probe.
func (c *Collector) ProbeFailed() {
	if c == nil {
		return
	}
	probeFailures.Inc()
}

// MonitorStarted increments the active monitor gauge.
func (c *Collector) MonitorStarted() {
	if c == nil {
		return
	}
	activeMonitors.Inc()
}

// MonitorStopped decrements the active monitor gauge.
func (c *Collector) MonitorStopped() {
	if c == nil {
		return
	}
	activeMonitors.Dec()
}

// TaskStarted increments the tracked task gauge.
func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	activeTasks.Inc()
}

// TaskDone decrements the tracked task gauge.
func (c *Collector) TaskDone() {
	if c == nil {
		return
	}
	activeTasks.Dec()
}

// SetRunning exports the engine run flag.
func (c *Collector) SetRunning(running bool) {
	if c == nil {
		return
	}
	if running {
		engineRunning.Set(1)
		return
	}
	engineRunning.Set(0)
}

// RecordHTTP records outbound request latency. status is 0 on transport errors.
func (c *Collector) RecordHTTP(adapter string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	httpLatency.WithLabelValues(adapter, strconv.Itoa(status)).Observe(duration.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}
