package planner

import "fmt"

// resolveTargets turns daily macro totals and per-meal allocations into
// one Target per configured meal type. Allocations do not have to sum to
// exactly 1.0; they are used as given.
func resolveTargets(p *Preferences) (map[string]Target, error) {
	if p.DailyCalories <= 0 {
		return nil, fmt.Errorf("%w: daily calories must be positive, got %d", ErrConfiguration, p.DailyCalories)
	}
	if p.DailyProteinG <= 0 {
		return nil, fmt.Errorf("%w: daily protein must be positive, got %d", ErrConfiguration, p.DailyProteinG)
	}

	targets := make(map[string]Target, len(p.MealsPerDay))
	for _, meal := range p.MealsPerDay {
		frac, ok := p.MealAllocation[meal]
		if !ok {
			return nil, fmt.Errorf("%w: no meal allocation for %q", ErrConfiguration, meal)
		}
		if frac < 0 {
			return nil, fmt.Errorf("%w: negative meal allocation %.2f for %q", ErrConfiguration, frac, meal)
		}
		targets[meal] = Target{
			Calories: float64(p.DailyCalories) * frac,
			ProteinG: float64(p.DailyProteinG) * frac,
		}
	}
	return targets, nil
}
