package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"meal-planner/internal/recipe"
)

// Planner turns a recipe library and resolved preferences into a weekly
// meal plan.
type Planner struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{logger: logger}
}

// BuildPlan runs the full pipeline: resolve targets, build the schedule,
// resolve pins, assemble the constraint model, search, and extract.
//
// Configuration problems return an error wrapping ErrConfiguration. An
// empty or timed-out search returns a Result with no plan and the status
// set accordingly, not an error.
func (pl *Planner) BuildPlan(ctx context.Context, recipes []*recipe.Recipe, p *Preferences, opts Options, rawPins []string) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(opts.ServingMultipliers) == 0 {
		return nil, fmt.Errorf("%w: no serving multipliers configured", ErrConfiguration)
	}

	targets, err := resolveTargets(p)
	if err != nil {
		return nil, err
	}
	slots, err := buildSchedule(p, targets)
	if err != nil {
		return nil, err
	}
	pl.logger.Debug("schedule built",
		zap.Int("slots", len(slots)),
		zap.Int("plan_days", p.PlanDays))

	pins, err := ParsePins(rawPins)
	if err != nil {
		return nil, err
	}
	resolvedPins, err := ResolvePins(pins, slots, recipes, p)
	if err != nil {
		return nil, err
	}

	groupPool := filterDinnerPool(recipes, slots, p)
	for _, pin := range resolvedPins {
		groupPool = append(groupPool, pin.Recipe)
	}
	groups := recipe.BuildGroupTable(groupPool)

	m, err := buildModel(recipes, slots, p, opts, resolvedPins, groups)
	if err != nil {
		return nil, err
	}
	for _, label := range m.infeasibleSlots {
		pl.logger.Warn("no candidates for slot", zap.String("slot", label))
	}
	if len(m.cookSlots()) == 0 {
		return &Result{Status: StatusInfeasible, InfeasibleSlots: m.infeasibleSlots}, nil
	}

	sol, objective, status := newSolver(m, p, opts).solve(ctx)
	pl.logger.Info("solver finished",
		zap.String("status", string(status)),
		zap.Float64("objective", objective))
	if sol == nil {
		return &Result{Status: status, InfeasibleSlots: m.infeasibleSlots}, nil
	}

	plan, err := extract(m, sol, p, opts, m.pinned)
	if err != nil {
		return nil, err
	}
	return &Result{
		Plan:            plan,
		Status:          status,
		Objective:       objective,
		InfeasibleSlots: m.infeasibleSlots,
	}, nil
}

// filterDinnerPool collects the candidate recipes any dinner cook slot can
// draw from, used to size the ingredient-group table.
func filterDinnerPool(recipes []*recipe.Recipe, slots []Slot, p *Preferences) []*recipe.Recipe {
	for _, slot := range slots {
		if slot.MealType == "dinner" && slot.PrepStyle != PrepLeftover {
			return filterCandidates(recipes, slot, p)
		}
	}
	return nil
}
