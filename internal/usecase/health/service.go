package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Preset answers keep working.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks the retrieval index when the service runs preset-only.
	CheckDisabled CheckResult = "disabled"
)

// Component names used as Report.Checks keys.
const (
	ComponentIndex      = "index"
	ComponentEmbedding  = "embedding"
	ComponentCompletion = "completion"
	ComponentCache      = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Components groups the checkable dependencies. Nil fields are skipped, except
// Index, which reports CheckDisabled.
type Components struct {
	Index      Checker
	Embedding  Checker
	Completion Checker
	Cache      CachePinger
}

// Service coordinates health checks.
type Service struct {
	c Components
}

// New creates a Service.
func New(c Components) *Service {
	return &Service{c: c}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 4)

	if s.c.Index == nil {
		checks[ComponentIndex] = CheckDisabled
	} else {
		checks[ComponentIndex] = result(s.c.Index.HealthCheck(ctx))
	}
	if s.c.Embedding != nil {
		checks[ComponentEmbedding] = result(s.c.Embedding.HealthCheck(ctx))
	}
	if s.c.Completion != nil {
		checks[ComponentCompletion] = result(s.c.Completion.HealthCheck(ctx))
	}
	if s.c.Cache != nil {
		checks[ComponentCache] = result(s.c.Cache.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
