// Package render formats meal plans as Obsidian markdown and JSON.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/scaler"
)

// mealOrder controls row order inside a day's table.
var mealOrder = map[string]int{
	"breakfast": 0,
	"lunch":     1,
	"dinner":    2,
	"snack":     3,
}

func mealRank(mealType string) int {
	if r, ok := mealOrder[mealType]; ok {
		return r
	}
	return len(mealOrder)
}

// PlanMarkdown renders the plan as a vault note with frontmatter, one
// table per day, and a weekly summary.
func PlanMarkdown(plan *planner.MealPlan, now time.Time) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("type: meal-plan\n")
	fmt.Fprintf(&b, "date_created: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "start_date: %s\n", plan.StartDate)
	fmt.Fprintf(&b, "end_date: %s\n", plan.EndDate)
	fmt.Fprintf(&b, "daily_calories_target: %d\n", plan.CaloriesTarget)
	fmt.Fprintf(&b, "daily_protein_target: %d\n", plan.ProteinTarget)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Meal Plan: %s to %s\n\n", plan.StartDate, plan.EndDate)

	for d := 0; d < plan.Days; d++ {
		daySlots := plan.SlotsForDay(d)
		if len(daySlots) == 0 {
			continue
		}
		sortByMeal(daySlots)

		fmt.Fprintf(&b, "## %s\n\n", daySlots[0].DayName)
		b.WriteString("| Meal | Recipe | Calories | Protein | Prep |\n")
		b.WriteString("|------|--------|----------|---------|------|\n")

		dayCal, dayPro := 0.0, 0.0
		for _, slot := range daySlots {
			name := slot.Recipe
			if name == "" {
				name = "TBD"
			}
			servings := ""
			if slot.Servings != 1.0 && slot.Recipe != "" {
				servings = fmt.Sprintf(" (%.1fx)", slot.Servings)
			}
			prep := string(slot.PrepStyle)
			if slot.Pinned {
				prep += " (pinned)"
			}
			fmt.Fprintf(&b, "| %s | [[%s]]%s | %.0f | %.0fg | %s |\n",
				titleCase(slot.MealType), name, servings, slot.Calories, slot.ProteinG, prep)
			dayCal += slot.Calories
			dayPro += slot.ProteinG
		}
		fmt.Fprintf(&b, "| **Total** | | **%.0f** | **%.0fg** | |\n\n", dayCal, dayPro)
	}

	s := plan.Summary
	b.WriteString("## Weekly Summary\n\n")
	fmt.Fprintf(&b, "- Total calories: ~%.0f (avg %.0f/day)\n", s.TotalCalories, s.AvgCaloriesDay)
	fmt.Fprintf(&b, "- Total protein: ~%.0fg (avg %.0fg/day)\n", s.TotalProteinG, s.AvgProteinGDay)
	fmt.Fprintf(&b, "- Cook sessions: %d\n", s.CookSessions)
	fmt.Fprintf(&b, "- Unique recipes: %d\n", s.UniqueRecipes)
	if s.UnassignedSlots > 0 {
		fmt.Fprintf(&b, "- Unassigned slots: %d\n", s.UnassignedSlots)
	}
	b.WriteString("\n")
	return b.String()
}

func sortByMeal(slots []planner.PlanSlot) {
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && mealRank(slots[j].MealType) < mealRank(slots[j-1].MealType); j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PlanJSON renders the plan as indented JSON.
func PlanJSON(plan *planner.MealPlan) (string, error) {
	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}
	return string(out), nil
}

var directionsHeadingRe = regexp.MustCompile(`(?m)^#{2,3}\s+Directions\s*$`)
var nextHeadingRe = regexp.MustCompile(`(?m)^#{2,3}\s+`)

// ExtractDirections pulls the Directions section out of a recipe file,
// or "" when absent.
func ExtractDirections(filePath string) string {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ""
	}
	text := string(data)

	if strings.HasPrefix(text, "---") {
		if end := strings.Index(text[3:], "---"); end != -1 {
			text = text[end+6:]
		}
	}

	loc := directionsHeadingRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if next := nextHeadingRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest)
}

// PlanRecipes renders a "## Recipes" section with scaled ingredients and
// directions for every unique (recipe, servings) pair in the plan.
func PlanRecipes(plan *planner.MealPlan, library []*recipe.Recipe) string {
	byName := map[string]*recipe.Recipe{}
	for _, r := range library {
		byName[r.Name] = r
	}

	type serving struct {
		name     string
		servings float64
	}
	seen := map[serving]bool{}
	var servings []serving
	for _, slot := range plan.Slots {
		if slot.Recipe == "" {
			continue
		}
		key := serving{slot.Recipe, slot.Servings}
		if !seen[key] {
			seen[key] = true
			servings = append(servings, key)
		}
	}
	if len(servings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Recipes\n\n")
	for _, sp := range servings {
		fmt.Fprintf(&b, "### %s (%.1fx)\n\n", sp.name, sp.servings)

		r, ok := byName[sp.name]
		if !ok || len(r.ParsedIngredients) == 0 {
			b.WriteString("*Recipe ingredients not available. Run `meal-planner index` first.*\n\n")
			continue
		}

		base := r.Servings
		if base == 0 {
			base = 1
		}
		scaled := scaler.Scale(r, sp.servings*float64(base))

		b.WriteString("#### Ingredients\n\n")
		for _, section := range scaled.Sections {
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
					notes = ", " + item.Notes
				}
				if item.ScaledQtyDisplay != "" {
					fmt.Fprintf(&b, "- %s%s %s%s\n", item.ScaledQtyDisplay, unit, item.Item, notes)
				} else {
					fmt.Fprintf(&b, "- %s%s\n", item.Item, notes)
				}
			}
			b.WriteString("\n")
		}

		if directions := ExtractDirections(r.FilePath); directions != "" {
			b.WriteString("#### Directions\n\n")
			b.WriteString(directions)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
