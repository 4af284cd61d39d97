package util

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// PerfEnabled turns on per-operation timing (set by -perf).
var PerfEnabled bool

// PerfMetric aggregates timings for one named operation.
type PerfMetric struct {
	Name      string
	Count     int64
	TotalTime time.Duration
	MaxTime   time.Duration
}

// PerfTracker collects loop timings so per-tick latency can be checked.
type PerfTracker struct {
	mu      sync.Mutex
	metrics map[string]*PerfMetric
	started time.Time
}

var (
	globalPerf     *PerfTracker
	globalPerfOnce sync.Once
)

// GetPerfTracker returns the global performance tracker
func GetPerfTracker() *PerfTracker {
	globalPerfOnce.Do(func() {
		globalPerf = &PerfTracker{
			metrics: make(map[string]*PerfMetric),
			started: time.Now(),
		}
	})
	return globalPerf
}

// Record adds one observation for name.
func (pt *PerfTracker) Record(name string, d time.Duration) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	m, ok := pt.metrics[name]
	if !ok {
		m = &PerfMetric{Name: name}
		pt.metrics[name] = m
	}
	m.Count++
	m.TotalTime += d
	if d > m.MaxTime {
		m.MaxTime = d
	}
}

// Snapshot returns a copy of all metrics
func (pt *PerfTracker) Snapshot() map[string]PerfMetric {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	out := make(map[string]PerfMetric, len(pt.metrics))
	for k, v := range pt.metrics {
		out[k] = *v
	}
	return out
}

// Since records the time elapsed since start under name. Unlike Perf it
// does not consult PerfEnabled; callers decide from their own config.
func (pt *PerfTracker) Since(name string, start time.Time) {
	pt.Record(name, time.Since(start))
}

// Perf records the time elapsed since start under name.
func Perf(name string, start time.Time) {
	if !PerfEnabled {
		return
	}
	GetPerfTracker().Record(name, time.Since(start))
}

var (
	perfTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#009DEF")).Bold(true)
	perfMetricStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3"))
	perfSlowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	perfFastStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BED9F"))
)

// PrintReport prints average and worst-case latency per operation.
func (pt *PerfTracker) PrintReport() {
	if !PerfEnabled {
		return
	}

	metrics := pt.Snapshot()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("\n" + perfTitleStyle.Render("LOOP TIMINGS") + "\n")
	b.WriteString(fmt.Sprintf("uptime %s\n", time.Since(pt.started).Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("%-28s %8s %12s %12s\n", "operation", "count", "avg", "max"))
	b.WriteString(strings.Repeat("─", 64) + "\n")
	for _, name := range names {
		m := metrics[name]
		avg := time.Duration(0)
		if m.Count > 0 {
			avg = m.TotalTime / time.Duration(m.Count)
		}
		maxStr := m.MaxTime.Round(time.Microsecond).String()
		// A tick slower than one 30 fps frame is worth flagging.
		if m.MaxTime > time.Second/30 {
			maxStr = perfSlowStyle.Render(maxStr)
		} else {
			maxStr = perfFastStyle.Render(maxStr)
		}
		b.WriteString(fmt.Sprintf("%-28s %8d %12s %12s\n",
			perfMetricStyle.Render(name), m.Count, avg.Round(time.Microsecond), maxStr))
	}
	fmt.Print(b.String())
}
