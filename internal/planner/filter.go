package planner

import "meal-planner/internal/recipe"

// filterCandidates narrows the recipe pool to those usable in a cook slot.
// Leftover slots are never filtered directly; they inherit whatever their
// source slot selects.
func filterCandidates(recipes []*recipe.Recipe, slot Slot, p *Preferences) []*recipe.Recipe {
	maxTime := p.MaxFreshTimeMin
	if slot.PrepStyle == PrepBatch {
		maxTime = p.MaxBatchTimeMin
	}

	var out []*recipe.Recipe
	for _, r := range recipes {
		if !r.HasNutrition() {
			continue
		}
		if !r.MatchesMealType(slot.MealType) {
			continue
		}
		if !r.MatchesDietaryTags(p.DietaryTags) {
			continue
		}
		if excludedCuisine(r, p.ExcludedCuisines) {
			continue
		}
		if excludedIngredient(r, p.ExcludedIngredients) {
			continue
		}
		if r.NameMatchesAny(p.ExcludedRecipes) {
			continue
		}
		if !r.WithinTime(maxTime) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func excludedCuisine(r *recipe.Recipe, cuisines []string) bool {
	for _, c := range cuisines {
		if c != "" && r.MatchesCuisine(c) {
			return true
		}
	}
	return false
}

func excludedIngredient(r *recipe.Recipe, ingredients []string) bool {
	for _, ing := range ingredients {
		if r.ContainsIngredient(ing) {
			return true
		}
	}
	return false
}
