// Package scaler rescales a recipe's ingredient quantities to a target
// serving count.
package scaler

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"meal-planner/internal/recipe"
)

// FuzzyMatch finds the best matching recipe by name. Exact matches win
// outright; substring matches floor the score at 0.8; otherwise a
// normalized edit-similarity ratio is used, with 0.4 as the acceptance
// cutoff.
func FuzzyMatch(recipes []*recipe.Recipe, name string) *recipe.Recipe {
	lowered := strings.ToLower(name)

	var best *recipe.Recipe
	bestScore := 0.0
	for _, r := range recipes {
		rn := strings.ToLower(r.Name)
		if rn == lowered {
			return r
		}
		score := similarity(lowered, rn)
		if strings.Contains(rn, lowered) || strings.Contains(lowered, rn) {
			score = math.Max(score, 0.8)
		}
		if score > bestScore {
			bestScore, best = score, r
		}
	}
	if bestScore > 0.4 {
		return best
	}
	return nil
}

// similarity is a normalized Levenshtein ratio: 1 - distance/maxLen.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1.0 - float64(prev[lb])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// RoundToFraction renders a quantity as a practical cooking fraction.
func RoundToFraction(qty float64) string {
	if qty == 0 {
		return "0"
	}

	whole := int(qty)
	frac := qty - float64(whole)

	fractionMap := []struct {
		value float64
		text  string
	}{
		{0, ""},
		{1.0 / 8, "1/8"},
		{1.0 / 4, "1/4"},
		{1.0 / 3, "1/3"},
		{1.0 / 2, "1/2"},
		{2.0 / 3, "2/3"},
		{3.0 / 4, "3/4"},
		{1.0, ""},
	}

	closestVal, closestStr := 0.0, ""
	minDiff := math.Inf(1)
	for _, f := range fractionMap {
		if diff := math.Abs(frac - f.value); diff < minDiff {
			minDiff = diff
			closestVal, closestStr = f.value, f.text
		}
	}
	if closestVal >= 1.0 {
		whole++
		closestStr = ""
	}

	switch {
	case whole > 0 && closestStr != "":
		return fmt.Sprintf("%d %s", whole, closestStr)
	case whole > 0:
		return fmt.Sprintf("%d", whole)
	case closestStr != "":
		return closestStr
	default:
		return fmt.Sprintf("%.2f", qty)
	}
}

// ScaledItem is one ingredient line after scaling.
type ScaledItem struct {
	Item             string   `json:"item"`
	OriginalQty      *float64 `json:"original_qty"`
	OriginalUnit     string   `json:"original_unit,omitempty"`
	ScaledQty        *float64 `json:"scaled_qty"`
	ScaledQtyDisplay string   `json:"scaled_qty_display"`
	Unit             string   `json:"unit,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// ScaledSection groups scaled items under the recipe's section heading.
type ScaledSection struct {
	Section string       `json:"section,omitempty"`
	Items   []ScaledItem `json:"items"`
}

// ScaledRecipe is the full scaling result.
type ScaledRecipe struct {
	Name               string          `json:"name"`
	BaseServings       int             `json:"base_servings"`
	TargetServings     float64         `json:"target_servings"`
	ScaleFactor        float64         `json:"scale_factor"`
	CaloriesPerServing *float64        `json:"calories_per_serving"`
	ProteinPerServing  *float64        `json:"protein_per_serving"`
	TotalCalories      *float64        `json:"total_calories"`
	TotalProtein       *float64        `json:"total_protein"`
	Sections           []ScaledSection `json:"sections"`
}

// Scale rescales the recipe's parsed ingredients to a target serving
// count. Unquantified lines pass through unchanged.
func Scale(r *recipe.Recipe, targetServings float64) *ScaledRecipe {
	base := r.Servings
	if base == 0 {
		base = 1
	}
	factor := targetServings / float64(base)

	out := &ScaledRecipe{
		Name:               r.Name,
		BaseServings:       base,
		TargetServings:     targetServings,
		ScaleFactor:        math.Round(factor*100) / 100,
		CaloriesPerServing: r.Calories,
		ProteinPerServing:  r.ProteinG,
	}
	if r.Calories != nil {
		total := math.Round(*r.Calories*targetServings*10) / 10
		out.TotalCalories = &total
	}
	if r.ProteinG != nil {
		total := math.Round(*r.ProteinG*targetServings*10) / 10
		out.TotalProtein = &total
	}

	for _, section := range r.ParsedIngredients {
		scaled := ScaledSection{Section: section.Section}
		for _, item := range section.Items {
			si := ScaledItem{
				Item:         item.Item,
				OriginalQty:  item.Qty,
				OriginalUnit: item.Unit,
				Unit:         item.Unit,
				Notes:        item.Notes,
			}
			if item.Qty != nil {
				q := *item.Qty * factor
				si.ScaledQty = &q
				si.ScaledQtyDisplay = RoundToFraction(q)
			}
			scaled.Items = append(scaled.Items, si)
		}
		out.Sections = append(out.Sections, scaled)
	}
	return out
}

// Markdown renders the scaled recipe for the terminal or a vault note.
func (s *ScaledRecipe) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (Scaled to %g servings)\n\n", s.Name, s.TargetServings)
	fmt.Fprintf(&b, "**Base:** %d servings | **Scale:** %gx\n", s.BaseServings, s.ScaleFactor)

	if s.CaloriesPerServing != nil {
		protein := "?"
		if s.ProteinPerServing != nil {
			protein = fmt.Sprintf("%g", *s.ProteinPerServing)
		}
		fmt.Fprintf(&b, "**Per serving:** %g cal, %sg protein\n", *s.CaloriesPerServing, protein)
	}
	if s.TotalCalories != nil {
		protein := "?"
		if s.TotalProtein != nil {
			protein = fmt.Sprintf("%g", *s.TotalProtein)
		}
		fmt.Fprintf(&b, "**Total:** %g cal, %sg protein\n", *s.TotalCalories, protein)
	}
	b.WriteString("\n## Ingredients\n\n")

	for _, section := range s.Sections {
		if section.Section != "" {
			fmt.Fprintf(&b, "**%s**\n\n", section.Section)
		}
		for _, item := range section.Items {
			unit := ""
			if item.Unit != "" {
				unit = " " + item.Unit
			}
			notes := ""
			if item.Notes != "" {
				notes = fmt.Sprintf(" (%s)", item.Notes)
			}
			if item.ScaledQtyDisplay != "" {
				fmt.Fprintf(&b, "- %s%s %s%s\n", item.ScaledQtyDisplay, unit, item.Item, notes)
			} else {
				fmt.Fprintf(&b, "- %s%s\n", item.Item, notes)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// JSON renders the scaled recipe as indented JSON.
func (s *ScaledRecipe) JSON() (string, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal scaled recipe: %w", err)
	}
	return string(out), nil
}
