// Package health implements the Health Monitor of spec §4.12: a
// per-process tracker of response-time percentiles, periodic resource
// snapshots, rolled-up component health checks, and deduplicated,
// cooldown-gated alerts.
//
// Grounded on core/trigger/cron_trigger.go's cron-driven periodic-tick
// shape (github.com/robfig/cron/v3), generalized from "fire workers on
// a single cron spec" to "run the resource sampler on one schedule and
// the health-check rollup on another."
package health

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Component names spec §4.12 tracks response times for.
const (
	ComponentAI     = "ai"
	ComponentMemory = "memory"
	ComponentAPI    = "api"
)

// Status is a component's rolled-up health state.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusCritical Status = "critical"
)

// Severity classifies an Alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a deduplicated health event (spec §4.12: "alerts with
// deduplication by (component, severity, message) within a cooldown").
type Alert struct {
	Component string
	Severity  Severity
	Message   string
	Timestamp time.Time
}

type alertKey struct {
	component string
	severity  Severity
	message   string
}

// ResourceSnapshot is one sample of process resource usage (spec
// §4.12: "resource snapshots every 5s (CPU, memory, disk, process)").
// CPU/disk sampling at the OS level needs a platform library (the pack
// only carries gopsutil as an indirect, never-imported transitive
// dependency of the vector-store client, with no usage pattern to
// ground on — see DESIGN.md); process-level figures use the stdlib
// runtime package, which is sufficient for the process component this
// spec actually names.
type ResourceSnapshot struct {
	Timestamp    time.Time
	Goroutines   int
	HeapAllocMB  float64
	HeapSysMB    float64
	NumGC        uint32
}

// Config tunes the Monitor's thresholds and schedules.
type Config struct {
	ResponseTimeThreshold time.Duration // default 2s
	AlertCooldown         time.Duration // default 5 minutes
	MaxAlerts             int           // default 100
	ResourceSampleSpec    string        // cron spec, default "@every 5s"
	HealthCheckSpec       string        // cron spec, default "@every 60s"
}

// DefaultConfig returns the thresholds named in spec §4.12.
func DefaultConfig() Config {
	return Config{
		ResponseTimeThreshold: 2 * time.Second,
		AlertCooldown:         5 * time.Minute,
		MaxAlerts:             100,
		ResourceSampleSpec:    "@every 5s",
		HealthCheckSpec:       "@every 60s",
	}
}

// ComponentChecker reports a Status for a named component. Health
// checks and memory/AI/API subsystems register their own checkers;
// the Monitor rolls them up by majority-unhealthy rule.
type ComponentChecker func() Status

// Monitor is the single per-process Health Monitor, owned by the
// composition root and passed by reference (spec §9: no lazy global
// access).
type Monitor struct {
	cfg Config

	mu             sync.Mutex
	responseTimes  map[string]*ring
	endpointTimes  map[string]*ring
	snapshots      []ResourceSnapshot
	alerts         []Alert
	lastAlertFired map[alertKey]time.Time
	checkers       map[string]ComponentChecker
	rollup         map[string]Status

	cron    *cron.Cron
	started bool
}

// NewMonitor builds a Monitor with the given Config.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		cfg:            cfg,
		responseTimes:  make(map[string]*ring),
		endpointTimes:  make(map[string]*ring),
		lastAlertFired: make(map[alertKey]time.Time),
		checkers:       make(map[string]ComponentChecker),
		rollup:         make(map[string]Status),
	}
}

// RegisterChecker wires a component's health checker into the 60s
// rollup pass.
func (m *Monitor) RegisterChecker(component string, check ComponentChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[component] = check
}

// Start schedules the resource sampler and health-check rollup on the
// configured cron specs (spec §4.12: "every 5s" / "every 60s").
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.cron = cron.New()
	_, _ = m.cron.AddFunc(m.cfg.ResourceSampleSpec, m.sampleResources)
	_, _ = m.cron.AddFunc(m.cfg.HealthCheckSpec, m.runHealthChecks)
	m.cron.Start()
	m.started = true
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
}

// Stop halts the cron schedule. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
	m.started = false
}

// RecordResponseTime stores a duration sample for component (and, if
// endpoint is non-empty, the per-endpoint ring for "api"), raising an
// alert when the sample exceeds the response-time threshold.
func (m *Monitor) RecordResponseTime(component, endpoint string, d time.Duration) {
	ms := float64(d.Milliseconds())

	m.mu.Lock()
	r, ok := m.responseTimes[component]
	if !ok {
		r = newRing(1000)
		m.responseTimes[component] = r
	}
	r.push(ms)

	if endpoint != "" {
		key := component + ":" + endpoint
		er, ok := m.endpointTimes[key]
		if !ok {
			er = newRing(100)
			m.endpointTimes[key] = er
		}
		er.push(ms)
	}
	m.mu.Unlock()

	if d > m.cfg.ResponseTimeThreshold {
		m.raiseAlert(component, SeverityWarning, fmt.Sprintf(
			"response time %s exceeded threshold %s", d, m.cfg.ResponseTimeThreshold))
	}
}

// MeasureResponseTime wraps fn, recording its duration against
// component/endpoint and returning fn's error unchanged (spec §4.12:
// "explicit measureResponseTime(component, endpoint?, fn) wrapper").
func (m *Monitor) MeasureResponseTime(component, endpoint string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.RecordResponseTime(component, endpoint, time.Since(start))
	return err
}

// ResponseTimeStatsFor returns the current stats for component, or a
// zero value if no samples have been recorded yet.
func (m *Monitor) ResponseTimeStatsFor(component string) ResponseTimeStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responseTimes[component]
	if !ok {
		return ResponseTimeStats{}
	}
	return r.stats()
}

// EndpointStats returns the current stats for a component:endpoint
// pair, or a zero value if unseen.
func (m *Monitor) EndpointStats(component, endpoint string) ResponseTimeStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.endpointTimes[component+":"+endpoint]
	if !ok {
		return ResponseTimeStats{}
	}
	return r.stats()
}

func (m *Monitor) sampleResources() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap := ResourceSnapshot{
		Timestamp:   time.Now(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / (1024 * 1024),
		HeapSysMB:   float64(ms.HeapSys) / (1024 * 1024),
		NumGC:       ms.NumGC,
	}

	m.mu.Lock()
	m.snapshots = append(m.snapshots, snap)
	if len(m.snapshots) > 1000 {
		m.snapshots = m.snapshots[len(m.snapshots)-1000:]
	}
	m.mu.Unlock()
}

// LatestSnapshot returns the most recent resource snapshot, or the
// zero value if none has been taken yet.
func (m *Monitor) LatestSnapshot() ResourceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return ResourceSnapshot{}
	}
	return m.snapshots[len(m.snapshots)-1]
}

// runHealthChecks polls every registered ComponentChecker and rolls
// component statuses up into an overall status by majority-unhealthy
// rule: critical if any checker reports critical, unhealthy if a
// majority report unhealthy-or-worse, degraded if any report
// degraded-or-worse, healthy otherwise.
func (m *Monitor) runHealthChecks() {
	m.mu.Lock()
	checkers := make(map[string]ComponentChecker, len(m.checkers))
	for k, v := range m.checkers {
		checkers[k] = v
	}
	m.mu.Unlock()

	statuses := make(map[string]Status, len(checkers))
	for name, check := range checkers {
		statuses[name] = check()
	}

	m.mu.Lock()
	m.rollup = statuses
	m.mu.Unlock()

	overall := m.Rollup()
	if overall == StatusCritical || overall == StatusUnhealthy {
		m.raiseAlert("system", SeverityCritical, fmt.Sprintf("overall health is %s", overall))
	}
}

// ComponentStatus returns the last-observed status for component, or
// StatusHealthy if no checker has reported yet.
func (m *Monitor) ComponentStatus(component string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rollup[component]; ok {
		return s
	}
	return StatusHealthy
}

// Rollup computes the overall status across all last-observed
// component statuses by majority-unhealthy rule (spec §4.12).
func (m *Monitor) Rollup() Status {
	m.mu.Lock()
	statuses := make([]Status, 0, len(m.rollup))
	for _, s := range m.rollup {
		statuses = append(statuses, s)
	}
	m.mu.Unlock()

	if len(statuses) == 0 {
		return StatusHealthy
	}

	var critical, unhealthy, degraded int
	for _, s := range statuses {
		switch s {
		case StatusCritical:
			critical++
		case StatusUnhealthy:
			unhealthy++
		case StatusDegraded:
			degraded++
		}
	}
	if critical > 0 {
		return StatusCritical
	}
	if unhealthy*2 > len(statuses) {
		return StatusUnhealthy
	}
	if degraded > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

// raiseAlert records an alert unless an identical (component,
// severity, message) triple already fired within the cooldown window.
func (m *Monitor) raiseAlert(component string, severity Severity, message string) {
	key := alertKey{component: component, severity: severity, message: message}
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastAlertFired[key]; ok && now.Sub(last) < m.cfg.AlertCooldown {
		return
	}
	m.lastAlertFired[key] = now

	m.alerts = append(m.alerts, Alert{
		Component: component,
		Severity:  severity,
		Message:   message,
		Timestamp: now,
	})
	if len(m.alerts) > m.cfg.MaxAlerts {
		m.alerts = m.alerts[len(m.alerts)-m.cfg.MaxAlerts:]
	}
}

// Alerts returns a copy of the currently kept alerts, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// RaiseDegradedAlert lets external collaborators (persistence,
// coordinator) surface a degraded-health warning per spec §7's
// "degraded-health alert is raised" on persistence outage.
func (m *Monitor) RaiseDegradedAlert(component, message string) {
	m.raiseAlert(component, SeverityWarning, message)
}
