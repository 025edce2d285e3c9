// Package suggest ranks recipes for ad-hoc meal ideas, outside the weekly
// optimizer. Scores are additive over independent dimensions on a 0-100
// scale.
package suggest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"meal-planner/internal/recipe"
)

// Filters are the hard constraints applied before scoring.
type Filters struct {
	MealType    string
	MaxTimeMin  int
	Cuisine     string
	DietaryTags []string
	Exclude     []string
	MinProtein  float64
	MaxCalories float64
}

// Request combines filters with the soft scoring inputs.
type Request struct {
	Filters
	AvailableIngredients []string
	TargetCalories       int
	TargetProtein        int
	Limit                int
}

// ScoreBreakdown itemizes a suggestion's score per dimension.
type ScoreBreakdown struct {
	Pantry   float64 `json:"pantry"`
	Rating   float64 `json:"rating"`
	Recency  float64 `json:"recency"`
	MacroFit float64 `json:"macro_fit"`
	Variety  float64 `json:"variety"`
}

// ScoredRecipe is one ranked suggestion.
type ScoredRecipe struct {
	Recipe            *recipe.Recipe
	Score             float64
	SuggestedServings float64
	Breakdown         ScoreBreakdown
}

// servingOptions tried when fitting a recipe to macro targets.
var servingOptions = []float64{1.0, 1.5, 2.0, 3.0}

func applyFilters(recipes []*recipe.Recipe, f Filters) []*recipe.Recipe {
	var out []*recipe.Recipe
	for _, r := range recipes {
		if f.MealType != "" && !r.MatchesMealType(f.MealType) {
			continue
		}
		if f.MaxTimeMin > 0 && !r.WithinTime(f.MaxTimeMin) {
			continue
		}
		if f.Cuisine != "" && !r.MatchesCuisine(f.Cuisine) {
			continue
		}
		if !r.MatchesDietaryTags(f.DietaryTags) {
			continue
		}
		if r.NameMatchesAny(f.Exclude) {
			continue
		}
		if f.MinProtein > 0 && r.ProteinG != nil && *r.ProteinG < f.MinProtein {
			continue
		}
		if f.MaxCalories > 0 && r.Calories != nil && *r.Calories > f.MaxCalories {
			continue
		}
		out = append(out, r)
	}
	return out
}

// pantryOverlap scores 0-1 for the share of ingredients already on hand.
func pantryOverlap(r *recipe.Recipe, pantry []string) float64 {
	if len(pantry) == 0 || len(r.ParsedIngredients) == 0 {
		return 0.0
	}
	lowered := make([]string, 0, len(pantry))
	for _, p := range pantry {
		lowered = append(lowered, strings.ToLower(p))
	}

	total, matched := 0, 0
	for _, section := range r.ParsedIngredients {
		for _, item := range section.Items {
			total++
			itemLower := strings.ToLower(item.Item)
			for _, p := range lowered {
				if strings.Contains(itemLower, p) || strings.Contains(p, itemLower) {
					matched++
					break
				}
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(matched) / float64(total)
}

// macroFit tries each serving option against the targets and keeps the
// best. Returns (score 0-1, servings). Recipes with no macro data score a
// neutral 0.5 at one serving.
func macroFit(r *recipe.Recipe, targetCalories, targetProtein int) (float64, float64) {
	if r.Calories == nil && r.ProteinG == nil {
		return 0.5, 1.0
	}

	bestScore, bestServings := 0.0, 1.0
	for _, servings := range servingOptions {
		calScore, proScore := 0.0, 0.0
		if targetCalories > 0 && r.Calories != nil {
			dev := math.Abs(*r.Calories*servings-float64(targetCalories)) / float64(targetCalories)
			calScore = math.Max(0, 1-dev)
		}
		if targetProtein > 0 && r.ProteinG != nil {
			dev := math.Abs(*r.ProteinG*servings-float64(targetProtein)) / float64(targetProtein)
			proScore = math.Max(0, 1-dev)
		}

		var combined float64
		if targetCalories > 0 && targetProtein > 0 {
			combined = calScore*0.4 + proScore*0.6
		} else {
			combined = math.Max(calScore, proScore)
		}
		if combined > bestScore {
			bestScore, bestServings = combined, servings
		}
	}
	return bestScore, bestServings
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Score rates one recipe: pantry overlap 0-30, rating 0-20, recency
// avoidance 0-15, macro fit 0-20, variety 0-15.
func Score(r *recipe.Recipe, req Request, now time.Time) ScoredRecipe {
	var b ScoreBreakdown

	b.Pantry = round1(pantryOverlap(r, req.AvailableIngredients) * 30)

	if r.Rating > 0 {
		b.Rating = round1(math.Min(r.Rating/5.0, 1.0) * 20)
	} else {
		b.Rating = 10.0
	}

	// Never made earns the full recency score.
	b.Recency = 15.0
	if r.LastMade != "" {
		if lastDate, err := time.Parse("2006-01-02", r.LastMade); err == nil {
			daysAgo := int(now.Sub(lastDate).Hours() / 24)
			switch {
			case daysAgo < 7:
				b.Recency = 0.0
			case daysAgo < 14:
				b.Recency = 5.0
			case daysAgo < 30:
				b.Recency = 10.0
			}
		}
	}

	fit, servings := macroFit(r, req.TargetCalories, req.TargetProtein)
	b.MacroFit = round1(fit * 20)

	b.Variety = 10.0
	if r.Tried {
		b.Variety += 2.5
	}
	if r.Favorite {
		b.Variety += 2.5
	}

	total := b.Pantry + b.Rating + b.Recency + b.MacroFit + b.Variety
	return ScoredRecipe{
		Recipe:            r,
		Score:             round1(total),
		SuggestedServings: servings,
		Breakdown:         b,
	}
}

// Suggest filters and ranks the library, returning the top suggestions.
// Ties break on recipe name so output is stable.
func Suggest(recipes []*recipe.Recipe, req Request, now time.Time) []ScoredRecipe {
	filtered := applyFilters(recipes, req.Filters)

	scored := make([]ScoredRecipe, 0, len(filtered))
	for _, r := range filtered {
		scored = append(scored, Score(r, req, now))
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Recipe.Name < scored[j].Recipe.Name
	})

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// FormatTable renders suggestions as a fixed-width terminal table.
func FormatTable(scored []ScoredRecipe) string {
	var b strings.Builder
	header := fmt.Sprintf("%-3s %-6s %-5s %-6s %-6s %-6s %s", "#", "Score", "Svgs", "Cal", "Pro", "Time", "Recipe")
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")

	for i, sr := range scored {
		r := sr.Recipe
		cal, pro, dur := "?", "?", "?"
		if r.Calories != nil {
			cal = fmt.Sprintf("%.0f", *r.Calories)
		}
		if r.ProteinG != nil {
			pro = fmt.Sprintf("%.0fg", *r.ProteinG)
		}
		if r.TotalTimeMin > 0 {
			dur = fmt.Sprintf("%dm", r.TotalTimeMin)
		}
		fmt.Fprintf(&b, "%-3d %-6.1f %-5.1f %-6s %-6s %-6s %s\n",
			i+1, sr.Score, sr.SuggestedServings, cal, pro, dur, r.Name)
	}
	return b.String()
}

// FormatJSON renders suggestions as indented JSON.
func FormatJSON(scored []ScoredRecipe) (string, error) {
	type entry struct {
		Name              string         `json:"name"`
		File              string         `json:"file"`
		Calories          *float64       `json:"calories"`
		ProteinG          *float64       `json:"protein_g"`
		Servings          int            `json:"servings"`
		TotalTimeMin      int            `json:"total_time_min"`
		MealType          string         `json:"meal_type"`
		Cuisine           string         `json:"cuisine"`
		SuggestedServings float64        `json:"suggested_servings"`
		Score             float64        `json:"score"`
		ScoreBreakdown    ScoreBreakdown `json:"score_breakdown"`
	}

	entries := make([]entry, 0, len(scored))
	for _, sr := range scored {
		r := sr.Recipe
		entries = append(entries, entry{
			Name:              r.Name,
			File:              r.FilePath,
			Calories:          r.Calories,
			ProteinG:          r.ProteinG,
			Servings:          r.Servings,
			TotalTimeMin:      r.TotalTimeMin,
			MealType:          r.MealType,
			Cuisine:           r.Cuisine,
			SuggestedServings: sr.SuggestedServings,
			Score:             sr.Score,
			ScoreBreakdown:    sr.Breakdown,
		})
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal suggestions: %w", err)
	}
	return string(out), nil
}
