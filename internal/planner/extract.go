package planner

import "fmt"

// recipeServings converts a serving multiplier into realized servings for
// display. Multipliers already express servings directly.
func recipeServings(m float64) float64 { return m }

// extract rebuilds the MealPlan from a solver solution. Cook slots take
// their chosen candidate; leftover slots re-derive their best multiplier
// from their source slot's recipe. Slots with no solver assignment and no
// source assignment stay empty.
func extract(m *model, sol solution, p *Preferences, opts Options, pinned map[int]bool) (*MealPlan, error) {
	plan := &MealPlan{
		StartDate:      p.StartDate.Format("2006-01-02"),
		EndDate:        p.StartDate.AddDate(0, 0, p.PlanDays-1).Format("2006-01-02"),
		Days:           p.PlanDays,
		CaloriesTarget: p.DailyCalories,
		ProteinTarget:  p.DailyProteinG,
	}

	unique := map[string]bool{}
	for i, slot := range m.slots {
		ps := PlanSlot{
			Day:       slot.Day,
			DayName:   DayNames[slot.Day%len(DayNames)],
			MealType:  slot.MealType,
			PrepStyle: slot.PrepStyle,
			Pinned:    pinned[i],
		}

		switch slot.PrepStyle {
		case PrepLeftover:
			source, ok := sol[slot.SourceIndex]
			if !ok {
				// Source slot was infeasible or unassigned; the leftover
				// slot stays empty with it.
				break
			}
			mult, _ := bestLeftoverMultiplier(source.Recipe, slot.Target, opts)
			ps.Recipe = source.Recipe.Name
			ps.RecipeFile = source.Recipe.FilePath
			ps.Servings = recipeServings(mult)
			if source.Recipe.Calories != nil {
				ps.Calories = *source.Recipe.Calories * mult
			}
			if source.Recipe.ProteinG != nil {
				ps.ProteinG = *source.Recipe.ProteinG * mult
			}
		default:
			a, ok := sol[i]
			if !ok {
				if len(m.domains[i]) > 0 {
					// Every cook slot with a non-empty domain must be
					// assigned in a complete solution.
					return nil, fmt.Errorf("%w: cook slot %s has candidates but no assignment", ErrExtraction, slotLabel(slot))
				}
				break
			}
			if !candidateInDomain(m.domains[i], a.Candidate) {
				return nil, fmt.Errorf("%w: assignment for %s is not a registered candidate", ErrExtraction, slotLabel(slot))
			}
			ps.Recipe = a.Recipe.Name
			ps.RecipeFile = a.Recipe.FilePath
			ps.Servings = recipeServings(a.Multiplier)
			ps.Calories = a.Calories
			ps.ProteinG = a.ProteinG
		}

		if ps.Recipe != "" {
			unique[ps.Recipe] = true
		} else {
			plan.Summary.UnassignedSlots++
		}
		plan.Summary.TotalCalories += ps.Calories
		plan.Summary.TotalProteinG += ps.ProteinG
		plan.Slots = append(plan.Slots, ps)
	}

	plan.Summary.UniqueRecipes = len(unique)
	plan.Summary.CookSessions = len(sol)
	if p.PlanDays > 0 {
		plan.Summary.AvgCaloriesDay = plan.Summary.TotalCalories / float64(p.PlanDays)
		plan.Summary.AvgProteinGDay = plan.Summary.TotalProteinG / float64(p.PlanDays)
	}
	return plan, nil
}

func candidateInDomain(domain []Candidate, c Candidate) bool {
	for _, d := range domain {
		if d.Recipe == c.Recipe && d.Multiplier == c.Multiplier {
			return true
		}
	}
	return false
}
