package planner

import (
	"math"
	"sort"

	"meal-planner/internal/recipe"
)

// Options holds the solver tuning knobs resolved from configuration.
type Options struct {
	// ServingMultipliers are the allowed scaling factors for a recipe's
	// per-serving macros, e.g. 0.5 through 4.0 in half steps.
	ServingMultipliers []float64
	// DeviationThreshold caps the normalized deviation a candidate may
	// have and still be kept, unless nothing passes for a slot.
	DeviationThreshold float64
	CalorieWeight      float64
	ProteinWeight      float64
	TimeBudgetSeconds  int
}

// deviation computes the weighted normalized macro deviation for a recipe
// at a given multiplier against a slot target. Targets of zero contribute
// nothing for that macro.
func deviation(cal, protein float64, target Target, opts Options) float64 {
	var d float64
	if target.Calories > 0 {
		d += opts.CalorieWeight * math.Abs(cal-target.Calories) / target.Calories
	}
	if target.ProteinG > 0 {
		d += opts.ProteinWeight * math.Abs(protein-target.ProteinG) / target.ProteinG
	}
	return d
}

// scoreCandidates builds the scored (recipe, multiplier) candidates for a
// cook slot. Every multiplier is tried for every recipe; per recipe, the
// multipliers within the deviation threshold are kept, and a recipe with
// no passing multiplier keeps its single closest one instead. Macro
// mismatch alone never removes a recipe from the pool.
//
// The result is sorted by (deviation, recipe name, multiplier) so the
// solver explores the most promising assignments first and runs are
// deterministic for identical inputs.
func scoreCandidates(recipes []*recipe.Recipe, target Target, opts Options) []Candidate {
	kept := make([]Candidate, 0, len(recipes)*len(opts.ServingMultipliers))
	for _, r := range recipes {
		cal := 0.0
		if r.Calories != nil {
			cal = *r.Calories
		}
		protein := 0.0
		if r.ProteinG != nil {
			protein = *r.ProteinG
		}

		var best Candidate
		bestD := math.Inf(1)
		passing := 0
		for _, m := range opts.ServingMultipliers {
			scaledCal := cal * m
			scaledProtein := protein * m
			c := Candidate{
				Recipe:     r,
				Multiplier: m,
				Calories:   scaledCal,
				ProteinG:   scaledProtein,
				Deviation:  deviation(scaledCal, scaledProtein, target, opts),
			}
			if c.Deviation <= opts.DeviationThreshold {
				kept = append(kept, c)
				passing++
			}
			if c.Deviation < bestD {
				bestD, best = c.Deviation, c
			}
		}
		if passing == 0 && len(opts.ServingMultipliers) > 0 {
			kept = append(kept, best)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Deviation != kept[j].Deviation {
			return kept[i].Deviation < kept[j].Deviation
		}
		if kept[i].Recipe.Name != kept[j].Recipe.Name {
			return kept[i].Recipe.Name < kept[j].Recipe.Name
		}
		return kept[i].Multiplier < kept[j].Multiplier
	})
	return kept
}

// bestLeftoverMultiplier picks the serving multiplier that brings a
// leftover portion of the given recipe closest to the leftover slot's
// target. The choice is independent of the source slot's own multiplier;
// leftovers are re-portioned freely.
func bestLeftoverMultiplier(r *recipe.Recipe, target Target, opts Options) (float64, float64) {
	cal := 0.0
	if r.Calories != nil {
		cal = *r.Calories
	}
	protein := 0.0
	if r.ProteinG != nil {
		protein = *r.ProteinG
	}

	bestM, bestD := opts.ServingMultipliers[0], math.Inf(1)
	for _, m := range opts.ServingMultipliers {
		d := deviation(cal*m, protein*m, target, opts)
		if d < bestD {
			bestD, bestM = d, m
		}
	}
	return bestM, bestD
}
