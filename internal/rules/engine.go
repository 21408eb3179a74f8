package rules

import (
	"go.uber.org/zap"

	"fleetwatch/internal/domain"
)

// Engine runs the registered rule battery over a reading window.
// Rules are evaluated in registration order; order only affects the
// order of returned candidates.
type Engine struct {
	rules      []Rule
	thresholds ThresholdSource
	logger     *zap.Logger
}

// NewEngine creates an engine with the default rule battery.
func NewEngine(thresholds ThresholdSource, logger *zap.Logger) *Engine {
	return &Engine{
		rules: []Rule{
			highEngineTempRule{},
			anomalousFuelRule{},
			harshDrivingRule{},
			prolongedIdleRule{},
			maintenanceMileageRule{},
			maintenanceTimeRule{},
			statisticalAnomalyRule{},
		},
		thresholds: thresholds,
		logger:     logger,
	}
}

// Register appends a rule to the battery.
func (e *Engine) Register(r Rule) {
	e.rules = append(e.rules, r)
}

// Evaluate runs every rule and collects the candidates. Thresholds are
// read fresh from the source so overrides take effect without restart.
// A failing rule yields no candidate, never an error.
func (e *Engine) Evaluate(window []domain.Reading, ctx *Context) []domain.Candidate {
	if len(window) == 0 {
		return nil
	}
	ctx.Thresholds = e.thresholds.Current()

	var candidates []domain.Candidate
	for _, rule := range e.rules {
		if c := e.evaluateOne(rule, window, ctx); c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates
}

func (e *Engine) evaluateOne(rule Rule, window []domain.Reading, ctx *Context) (c *domain.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("rule evaluation panicked", zap.String("rule", rule.Name()), zap.Any("panic", r))
			c = nil
		}
	}()
	return rule.Evaluate(window, ctx)
}
