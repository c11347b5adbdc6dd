// Package health runs readiness checks against the service's dependencies.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckStatus represents the result of a health check
type CheckStatus int

const (
	StatusHealthy CheckStatus = iota
	StatusDegraded
	StatusUnhealthy
	StatusUnknown
)

func (s CheckStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// CheckResult contains the result of a health check
type CheckResult struct {
	Component string        `json:"component"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Critical  bool          `json:"critical"`
	Duration  time.Duration `json:"duration"`
	status    CheckStatus
}

// Checker is one dependency check.
type Checker interface {
	Name() string
	// IsCritical reports whether a failure makes the service not ready.
	IsCritical() bool
	Check(ctx context.Context) error
}

// Report aggregates every check.
type Report struct {
	Status     CheckStatus
	Ready      bool
	Message    string
	Components []CheckResult
}

// Manager runs registered checkers concurrently, each under its own timeout.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewManager creates a manager. A zero timeout means two seconds per check.
func NewManager(timeout time.Duration, logger *zap.Logger, checkers ...Checker) *Manager {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{checkers: checkers, timeout: timeout, logger: logger}
}

// Register adds a checker.
func (m *Manager) Register(c Checker) {
	m.checkers = append(m.checkers, c)
}

// Run executes every check and derives the overall status.
func (m *Manager) Run(ctx context.Context) Report {
	results := make([]CheckResult, len(m.checkers))
	var wg sync.WaitGroup
	for i, c := range m.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			results[i] = m.runSingleCheck(ctx, c)
		}(i, c)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Component < results[j].Component })
	return summarize(results)
}

func (m *Manager) runSingleCheck(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	result := CheckResult{
		Component: c.Name(),
		Critical:  c.IsCritical(),
		Duration:  time.Since(start),
		status:    StatusHealthy,
	}
	if err != nil {
		result.status = StatusUnhealthy
		if !result.Critical {
			result.status = StatusDegraded
		}
		result.Error = err.Error()
		m.logger.Warn("Health check failed",
			zap.String("component", result.Component),
			zap.Bool("critical", result.Critical),
			zap.Error(err),
		)
	}
	result.Status = result.status.String()
	return result
}

func summarize(results []CheckResult) Report {
	if len(results) == 0 {
		return Report{Status: StatusUnknown, Message: "No health checks registered", Ready: false}
	}
	critical, degraded := 0, 0
	for _, r := range results {
		switch r.status {
		case StatusUnhealthy:
			critical++
		case StatusDegraded:
			degraded++
		}
	}
	switch {
	case critical > 0:
		return Report{Status: StatusUnhealthy, Message: fmt.Sprintf("%d critical component(s) failing", critical), Components: results}
	case degraded > 0:
		return Report{Status: StatusDegraded, Ready: true, Message: fmt.Sprintf("%d component(s) degraded", degraded), Components: results}
	default:
		return Report{Status: StatusHealthy, Ready: true, Message: "All components healthy", Components: results}
	}
}

// CustomHealthChecker adapts a function into a Checker.
type CustomHealthChecker struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// NewCustomHealthChecker creates a checker from check.
func NewCustomHealthChecker(name string, critical bool, check func(ctx context.Context) error) *CustomHealthChecker {
	return &CustomHealthChecker{name: name, critical: critical, check: check}
}

func (c *CustomHealthChecker) Name() string { return c.name }
func (c *CustomHealthChecker) IsCritical() bool { return c.critical }
func (c *CustomHealthChecker) Check(ctx context.Context) error { return c.check(ctx) }
