package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Preferences is the resolved planning input consumed by the optimizer.
// It is fully materialized before a run begins and never mutated during
// one.
type Preferences struct {
	DailyCalories  int
	DailyProteinG  int
	MealAllocation map[string]float64
	PrepStyles     map[string]PrepStyle
	CookDays       []string
	MealsPerDay    []string
	PlanDays       int

	MaxFreshTimeMin int
	MaxBatchTimeMin int

	DietaryTags        []string
	ExcludedCuisines   []string
	ExcludedIngredients []string
	ExcludedRecipes    []string
	RequiredGroups     []string

	// MealTypeWeights scales each meal type's contribution to the
	// objective. Missing entries default to 1.
	MealTypeWeights map[string]float64

	StartDate time.Time
}

// Weight returns the objective weight for a meal type.
func (p *Preferences) Weight(mealType string) float64 {
	if w, ok := p.MealTypeWeights[mealType]; ok && w > 0 {
		return w
	}
	return 1.0
}

// Validate rejects malformed preferences before any filtering or solving
// happens. All failures wrap ErrConfiguration.
func (p *Preferences) Validate() error {
	if p.PlanDays <= 0 {
		return fmt.Errorf("%w: plan_days must be positive, got %d", ErrConfiguration, p.PlanDays)
	}
	if len(p.MealsPerDay) == 0 {
		return fmt.Errorf("%w: no meals per day configured", ErrConfiguration)
	}
	if len(p.CookDays) == 0 {
		return fmt.Errorf("%w: cook_days is empty", ErrConfiguration)
	}
	for _, d := range p.CookDays {
		if DayIndex(d) < 0 {
			return fmt.Errorf("%w: unknown cook day %q", ErrConfiguration, d)
		}
	}
	if len(p.cookDayIndices()) == 0 {
		return fmt.Errorf("%w: no cook day falls within the %d plan days", ErrConfiguration, p.PlanDays)
	}
	for _, meal := range p.MealsPerDay {
		frac, ok := p.MealAllocation[meal]
		if !ok {
			return fmt.Errorf("%w: no meal allocation for %q", ErrConfiguration, meal)
		}
		if frac < 0 {
			return fmt.Errorf("%w: negative meal allocation %.2f for %q", ErrConfiguration, frac, meal)
		}
	}
	return nil
}

func (p *Preferences) cookDayIndices() []int {
	var out []int
	for _, d := range p.CookDays {
		idx := DayIndex(d)
		if idx >= 0 && idx < p.PlanDays {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

func (p *Preferences) prepStyle(mealType string) PrepStyle {
	if style, ok := p.PrepStyles[strings.ToLower(mealType)]; ok {
		return style
	}
	return PrepFresh
}

// buildSchedule expands the preferences into the ordered slot list with
// prep styles resolved and leftover slots linked to their cook-day source.
// Per-slot targets come from resolveTargets beforehand.
//
// Linkage rules, per meal type style:
//   - fresh: a cook slot on every cook day; other days hold leftover slots
//     drawing from the nearest previous cook slot, wrapping to the last
//     cook day for leading days.
//   - batch: a single cook slot on the first cook day; every other day
//     holds a leftover slot drawing from it.
//   - leftover: a leftover slot every day, drawing from the nearest dinner
//     cook slot at or before the previous day (wrap-around as above).
func buildSchedule(p *Preferences, targets map[string]Target) ([]Slot, error) {
	cookDays := p.cookDayIndices()

	var slots []Slot
	// Cook slot index per (meal type, day), filled in the first pass so
	// leftover linkage can refer across meal types.
	cookSlots := map[string]map[int]int{}

	appendSlot := func(s Slot) int {
		s.Index = len(slots)
		slots = append(slots, s)
		return s.Index
	}

	// First pass: batch and fresh cook slots.
	for _, meal := range p.MealsPerDay {
		style := p.prepStyle(meal)
		cookSlots[meal] = map[int]int{}
		switch style {
		case PrepBatch:
			day := cookDays[0]
			idx := appendSlot(Slot{Day: day, MealType: meal, PrepStyle: PrepBatch, Target: targets[meal], SourceIndex: -1})
			cookSlots[meal][day] = idx
		case PrepFresh:
			for _, day := range cookDays {
				idx := appendSlot(Slot{Day: day, MealType: meal, PrepStyle: PrepFresh, Target: targets[meal], SourceIndex: -1})
				cookSlots[meal][day] = idx
			}
		}
	}

	// Second pass: leftover slots, linked to their source cook slots.
	for _, meal := range p.MealsPerDay {
		style := p.prepStyle(meal)
		for day := 0; day < p.PlanDays; day++ {
			if _, isCook := cookSlots[meal][day]; isCook {
				continue
			}

			var source int
			switch style {
			case PrepBatch, PrepFresh:
				source = nearestCookSlot(cookSlots[meal], day-1)
			case PrepLeftover:
				dinnerSlots := cookSlots["dinner"]
				if len(dinnerSlots) == 0 {
					return nil, fmt.Errorf("%w: meal %q is leftover-style but no dinner cook slots exist", ErrConfiguration, meal)
				}
				source = nearestCookSlot(dinnerSlots, day-1)
			default:
				return nil, fmt.Errorf("%w: unknown prep style %q for meal %q", ErrConfiguration, style, meal)
			}
			appendSlot(Slot{Day: day, MealType: meal, PrepStyle: PrepLeftover, Target: targets[meal], SourceIndex: source})
		}
	}

	sortSlots(slots)
	return slots, nil
}

// nearestCookSlot finds the cook slot with the largest day at or before
// maxDay, wrapping to the overall latest cook slot when none precedes it.
func nearestCookSlot(byDay map[int]int, maxDay int) int {
	best, bestDay := -1, -1
	last, lastDay := -1, -1
	for day, idx := range byDay {
		if day > lastDay {
			lastDay, last = day, idx
		}
		if day <= maxDay && day > bestDay {
			bestDay, best = day, idx
		}
	}
	if best >= 0 {
		return best
	}
	return last
}

// sortSlots orders slots by day; the stable sort keeps construction
// order within a day, which is the configured meal order. Slot indices
// are rewritten to match.
func sortSlots(slots []Slot) {
	ordered := make([]Slot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Day < ordered[j].Day
	})

	// Old index -> new index, so leftover links survive the reorder.
	remap := make([]int, len(slots))
	for newIdx, s := range ordered {
		remap[s.Index] = newIdx
	}
	for i := range ordered {
		ordered[i].Index = i
		if ordered[i].SourceIndex >= 0 {
			ordered[i].SourceIndex = remap[ordered[i].SourceIndex]
		}
	}
	copy(slots, ordered)
}
