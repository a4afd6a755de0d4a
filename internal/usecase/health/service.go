package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed; fts search still works.
	Degraded Status = "degraded"
	// Unhealthy indicates a component required for every search failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported by Check.
const (
	ComponentLexical   = "lexical"
	ComponentRecords   = "records"
	ComponentVector    = "vector"
	ComponentEmbedding = "embedding"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 2 * time.Second

// Component is one checked dependency.
type Component struct {
	Name string
	// Critical components turn the report Unhealthy; others only degrade it.
	Critical bool
	Check    func(ctx context.Context) error
}

// PingComponent adapts a Pinger. A nil pinger yields no component.
func PingComponent(name string, p Pinger, critical bool) (Component, bool) {
	if p == nil {
		return Component{}, false
	}
	return Component{Name: name, Critical: critical, Check: p.Ping}, true
}

// EmbeddingComponent adapts an embedding provider as an optional component.
func EmbeddingComponent(e EmbeddingChecker) (Component, bool) {
	if e == nil {
		return Component{}, false
	}
	return Component{Name: ComponentEmbedding, Check: e.HealthCheck}, true
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	components []Component
	timeout    time.Duration
}

// New creates a Service.
func New(timeout time.Duration, components ...Component) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{components: components, timeout: timeout}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components))
	status := Healthy

	for _, c := range s.components {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := c.Check(cctx)
		cancel()

		if err == nil {
			checks[c.Name] = CheckOK
			continue
		}
		checks[c.Name] = CheckError
		if c.Critical {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
