// Package recommend turns analysis results into budget suggestions, template
// rankings, split suggestions and prioritized recommendations.
package recommend

import (
	"github.com/Veraticus/spice-insights/internal/cluster"
	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/forecast"
)

// Engine is stateless; every method is a pure function of its arguments.
type Engine struct {
	forecaster *forecast.Forecaster
	clusters   *cluster.Engine
	policy     config.PolicyConfig
}

// NewEngine creates a recommendation engine.
func NewEngine(policy config.PolicyConfig, forecaster *forecast.Forecaster, clusters *cluster.Engine) *Engine {
	return &Engine{
		forecaster: forecaster,
		clusters:   clusters,
		policy:     policy,
	}
}
