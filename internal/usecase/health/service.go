package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across the chunk store, the vector
// store and the embedding provider.
type Service struct {
	documents Pinger
	vectors   Pinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(documents, vectors Pinger, embedding EmbeddingChecker) *Service {
	return &Service{documents: documents, vectors: vectors, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.documents.Ping(ctx); err != nil {
		checks["documents"] = CheckError
	} else {
		checks["documents"] = CheckOK
	}

	if err := s.vectors.Ping(ctx); err != nil {
		checks["vectors"] = CheckError
	} else {
		checks["vectors"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
