package pipeline

import (
	"context"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ComponentHealth is the state of one component.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport is the result of a health check.
type HealthReport struct {
	Timestamp           time.Time         `json:"timestamp"`
	Healthy             bool              `json:"healthy"`
	Sources             []ComponentHealth `json:"sources"`
	Ranker              ComponentHealth   `json:"ranker"`
	FirecrawlConfigured bool              `json:"firecrawl_configured"`
	AIConfigured        bool              `json:"ai_configured"`
}

type selfChecker interface {
	SelfCheck() error
}

// Health checks every source that supports it and runs the ranker's self
// check. No search is performed.
func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Timestamp:           time.Now().UTC(),
		Healthy:             true,
		FirecrawlConfigured: o.firecrawlConfigured,
		AIConfigured:        o.aiConfigured,
	}

	for _, src := range o.sources {
		var err error
		if hc, ok := src.(model.HealthChecker); ok {
			err = hc.Healthy(ctx)
		}
		ch := componentHealth(src.Name(), err)
		if err != nil {
			report.Healthy = false
		}
		report.Sources = append(report.Sources, ch)
	}

	var rankErr error
	if sc, ok := o.ranker.(selfChecker); ok {
		rankErr = sc.SelfCheck()
	}
	report.Ranker = componentHealth("ranker", rankErr)
	if rankErr != nil {
		report.Healthy = false
	}
	return report
}

func componentHealth(name string, err error) ComponentHealth {
	if err != nil {
		return ComponentHealth{Name: name, Status: StatusUnhealthy, Error: err.Error()}
	}
	return ComponentHealth{Name: name, Status: StatusHealthy}
}
