package planner

import (
	"fmt"
	"strings"

	"meal-planner/internal/recipe"
)

// Pin is a parsed "day:meal:recipe" request forcing a recipe into one or
// more slots. Day accepts a weekday name or the patterns "all", "even"
// and "odd" (0-indexed plan days).
type Pin struct {
	DayPattern string
	MealType   string
	RecipeName string
}

// ResolvedPin binds a pin to a concrete cook slot and recipe.
type ResolvedPin struct {
	SlotIndex int
	Recipe    *recipe.Recipe
}

// ParsePins splits raw pin expressions. The recipe part may itself
// contain colons, so only the first two separators split.
func ParsePins(raw []string) ([]Pin, error) {
	var pins []Pin
	for _, expr := range raw {
		parts := strings.SplitN(expr, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: pin %q is not day:meal:recipe", ErrConfiguration, expr)
		}
		pin := Pin{
			DayPattern: strings.ToLower(strings.TrimSpace(parts[0])),
			MealType:   strings.ToLower(strings.TrimSpace(parts[1])),
			RecipeName: strings.TrimSpace(parts[2]),
		}
		if pin.RecipeName == "" {
			return nil, fmt.Errorf("%w: pin %q has an empty recipe name", ErrConfiguration, expr)
		}
		switch pin.DayPattern {
		case "all", "even", "odd":
		default:
			if DayIndex(pin.DayPattern) < 0 {
				return nil, fmt.Errorf("%w: pin %q has unknown day %q", ErrConfiguration, expr, parts[0])
			}
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// matchDays expands a day pattern against the plan length.
func (pin Pin) matchDays(planDays int) []int {
	var days []int
	switch pin.DayPattern {
	case "all":
		for d := 0; d < planDays; d++ {
			days = append(days, d)
		}
	case "even":
		for d := 0; d < planDays; d += 2 {
			days = append(days, d)
		}
	case "odd":
		for d := 1; d < planDays; d += 2 {
			days = append(days, d)
		}
	default:
		if idx := DayIndex(pin.DayPattern); idx >= 0 && idx < planDays {
			days = append(days, idx)
		}
	}
	return days
}

// findRecipe resolves a pin's recipe name against the library. Exact
// case-insensitive matches win; otherwise a unique substring match is
// accepted.
func findRecipe(recipes []*recipe.Recipe, name string) (*recipe.Recipe, error) {
	lowered := strings.ToLower(name)
	var partial []*recipe.Recipe
	for _, r := range recipes {
		rn := strings.ToLower(r.Name)
		if rn == lowered {
			return r, nil
		}
		if strings.Contains(rn, lowered) {
			partial = append(partial, r)
		}
	}
	switch len(partial) {
	case 0:
		return nil, fmt.Errorf("%w: pinned recipe %q not found", ErrConfiguration, name)
	case 1:
		return partial[0], nil
	default:
		names := make([]string, len(partial))
		for i, r := range partial {
			names[i] = r.Name
		}
		return nil, fmt.Errorf("%w: pinned recipe %q is ambiguous (%s)", ErrConfiguration, name, strings.Join(names, ", "))
	}
}

// ResolvePins maps pins onto the schedule's cook slots. A pin on a
// leftover day attaches to the cook slot that feeds it, so pinning a
// Tuesday dinner in a Sunday/Wednesday cook week pins the Sunday cook.
// Two pins landing on the same cook slot with different recipes conflict.
func ResolvePins(pins []Pin, slots []Slot, recipes []*recipe.Recipe, p *Preferences) ([]ResolvedPin, error) {
	type dayMeal struct {
		day  int
		meal string
	}
	slotByDayMeal := map[dayMeal]int{}
	for i, s := range slots {
		slotByDayMeal[dayMeal{s.Day, s.MealType}] = i
	}

	byCookSlot := map[int]*recipe.Recipe{}
	for _, pin := range pins {
		r, err := findRecipe(recipes, pin.RecipeName)
		if err != nil {
			return nil, err
		}
		days := pin.matchDays(p.PlanDays)
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: pin day %q falls outside the %d plan days", ErrConfiguration, pin.DayPattern, p.PlanDays)
		}
		for _, day := range days {
			idx, ok := slotByDayMeal[dayMeal{day, pin.MealType}]
			if !ok {
				return nil, fmt.Errorf("%w: no %s slot on %s", ErrConfiguration, pin.MealType, DayNames[day%len(DayNames)])
			}
			// Walk leftover linkage back to the cook slot.
			for slots[idx].PrepStyle == PrepLeftover {
				idx = slots[idx].SourceIndex
			}
			if prev, ok := byCookSlot[idx]; ok && prev != r {
				return nil, fmt.Errorf("%w: conflicting pins for %s (%s vs %s)", ErrConfiguration, slotLabel(slots[idx]), prev.Name, r.Name)
			}
			byCookSlot[idx] = r
		}
	}

	resolved := make([]ResolvedPin, 0, len(byCookSlot))
	for i := range slots {
		if r, ok := byCookSlot[i]; ok {
			resolved = append(resolved, ResolvedPin{SlotIndex: i, Recipe: r})
		}
	}
	return resolved, nil
}
