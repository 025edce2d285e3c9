// Package planner builds optimized multi-day meal plans from a recipe
// collection and resolved preferences. The pipeline is pure and
// synchronous: target resolution, candidate filtering, serving-multiplier
// scoring, constraint-model construction, a deterministic branch-and-bound
// search under a wall-clock budget, and extraction back into a MealPlan.
package planner

import (
	"errors"
	"strings"
	"time"

	"meal-planner/internal/recipe"
)

// PrepStyle describes how a slot's food is produced.
type PrepStyle string

const (
	PrepBatch    PrepStyle = "batch"
	PrepFresh    PrepStyle = "fresh"
	PrepLeftover PrepStyle = "leftover"
)

// DayNames indexes plan days, Monday first.
var DayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// DayIndex converts a day name to a 0-indexed weekday (Monday=0), or -1.
func DayIndex(name string) int {
	for i, d := range DayNames {
		if strings.EqualFold(d, name) {
			return i
		}
	}
	return -1
}

// Target is a per-slot macro target.
type Target struct {
	Calories float64
	ProteinG float64
}

// Slot is one (day, meal-type) unit of the schedule. Leftover slots carry
// the index of the cook slot they draw from.
type Slot struct {
	Index     int
	Day       int
	MealType  string
	PrepStyle PrepStyle
	Target    Target
	// SourceIndex is the cook slot a leftover slot copies its recipe
	// from; -1 for batch and fresh slots.
	SourceIndex int
}

// Candidate is a (recipe, serving multiplier) pair valid for a slot, with
// realized macros and the scalar cost fed into the objective.
type Candidate struct {
	Recipe     *recipe.Recipe
	Multiplier float64
	Calories   float64
	ProteinG   float64
	Deviation  float64
}

// Status reports the solver outcome.
type Status string

const (
	// StatusOptimal means the search space was exhausted and the
	// incumbent is the best solution under the tie-break rule.
	StatusOptimal Status = "optimal"
	// StatusFeasible means the time budget expired with a feasible
	// incumbent that may not be optimal.
	StatusFeasible Status = "feasible"
	// StatusInfeasible means the constraint set has no solution.
	StatusInfeasible Status = "infeasible"
	// StatusTimedOut means the budget expired before any feasible
	// solution was found.
	StatusTimedOut Status = "timeout"
)

var (
	// ErrConfiguration marks malformed preferences; the run fails before
	// any filtering or solving.
	ErrConfiguration = errors.New("invalid planning configuration")
	// ErrExtraction marks a solver assignment that does not correspond
	// to a registered candidate. Always a bug, never a user condition.
	ErrExtraction = errors.New("solution extraction invariant violated")
)

// PlanSlot is a realized slot assignment. Recipe is empty for slots left
// unassigned by per-slot infeasibility.
type PlanSlot struct {
	Day       int       `json:"day"`
	DayName   string    `json:"day_name"`
	MealType  string    `json:"meal_type"`
	PrepStyle PrepStyle `json:"prep_style"`
	Recipe    string    `json:"recipe,omitempty"`
	RecipeFile string   `json:"recipe_file,omitempty"`
	Servings  float64   `json:"servings"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	Pinned    bool      `json:"pinned,omitempty"`
}

// Summary aggregates plan-level statistics.
type Summary struct {
	TotalCalories   float64 `json:"total_calories"`
	TotalProteinG   float64 `json:"total_protein_g"`
	AvgCaloriesDay  float64 `json:"avg_calories_per_day"`
	AvgProteinGDay  float64 `json:"avg_protein_g_per_day"`
	UniqueRecipes   int     `json:"unique_recipes"`
	CookSessions    int     `json:"cook_sessions"`
	UnassignedSlots int     `json:"unassigned_slots"`
}

// MealPlan is the optimizer's output: the full ordered slot list plus
// aggregates. It is handed to rendering and shopping as read-only data.
type MealPlan struct {
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Days           int        `json:"days"`
	CaloriesTarget int        `json:"calories_target"`
	ProteinTarget  int        `json:"protein_target"`
	Slots          []PlanSlot `json:"slots"`
	Summary        Summary    `json:"summary"`
}

// SlotsForDay returns the realized slots for one plan day, in meal order.
func (p *MealPlan) SlotsForDay(day int) []PlanSlot {
	var out []PlanSlot
	for _, s := range p.Slots {
		if s.Day == day {
			out = append(out, s)
		}
	}
	return out
}

// Result pairs the plan with the solver outcome. Plan is nil for
// infeasible and timed-out runs; InfeasibleSlots lists slots that had no
// candidates and were left unassigned in an otherwise usable plan.
type Result struct {
	Plan            *MealPlan
	Status          Status
	Objective       float64
	InfeasibleSlots []string
}

// NextMonday returns the first Monday strictly after t, the default plan
// start date.
func NextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return t.AddDate(0, 0, days)
}
