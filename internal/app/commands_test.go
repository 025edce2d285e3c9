package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/ingredients"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
)

const beefStewNote = `---
type: recipe
calories: 800
protein_g: 60
servings: 2
total_time: 45 minutes
meal_type: dinner
main_ingredient: beef
---

## Ingredients

- 2 lb beef chuck
- 4 carrots

## Directions

1. Brown the beef.
2. Simmer until tender.
`

const chickenBowlNote = `---
type: recipe
calories: 400
protein_g: 30
servings: 2
total_time: 30 minutes
meal_type: dinner
main_ingredient: chicken
---

## Ingredients

- 1 lb chicken thighs
- 2 cups rice

## Directions

1. Roast the chicken.
`

func testConfig() *config.Config {
	return &config.Config{
		Nutrition: config.Nutrition{
			DailyCalories:  2000,
			DailyProteinG:  150,
			MealAllocation: map[string]float64{"dinner": 0.4},
		},
		PrepStyles: map[string]string{"dinner": "fresh"},
		Schedule: config.Schedule{
			CookDays:    []string{"monday", "wednesday"},
			MealsPerDay: []string{"dinner"},
			PlanDays:    3,
		},
		Preferences: config.Preferences{
			MaxPrepTimeMinutes:  60,
			MaxBatchTimeMinutes: 120,
		},
		Solver: config.Solver{
			ServingMultipliers: []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0},
			DeviationThreshold: 0.4,
			CalorieWeight:      0.4,
			ProteinWeight:      0.6,
			TimeBudgetSeconds:  30,
		},
		PantryStaples: []string{"salt", "olive oil"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	vault := t.TempDir()
	cooking := config.CookingPath(vault)
	require.NoError(t, os.MkdirAll(cooking, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cooking, "Beef Stew.md"), []byte(beefStewNote), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cooking, "Chicken Bowl.md"), []byte(chickenBowlNote), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cooking, "Braising Notes.md"), []byte("Just prose, not a recipe.\n"), 0o644))

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewApp(
		testConfig(),
		vault,
		zap.NewNop(),
		db,
		recipe.NewRepository(db.SQL),
		planner.NewPlanRepository(db.SQL),
		planner.New(nil),
		ingredients.NewStructurer(nil, nil),
		clipper.NewClipper(nil),
		shopping.NewBuilder(nil),
	)
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	require.NoError(t, a.Index(ctx, IndexOptions{SkipAPI: true}))

	count, err := a.recipeRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hash, err := a.recipeRepo.IngredientsHash(ctx, "Beef Stew")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	sections, err := a.recipeRepo.StoredParsedIngredients(ctx, "Beef Stew")
	require.NoError(t, err)
	require.NotEmpty(t, sections)
	require.NotEmpty(t, sections[0].Items)
	assert.Equal(t, "beef chuck", sections[0].Items[0].Item)

	// A second run hits the hash cache and leaves the row count unchanged.
	require.NoError(t, a.Index(ctx, IndexOptions{SkipAPI: true}))
	count, err = a.recipeRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexDryRun(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	require.NoError(t, a.Index(ctx, IndexOptions{DryRun: true}))

	count, err := a.recipeRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLoadLibraryAttachesCache(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	// Before indexing there is no cache to attach.
	recipes, err := a.loadLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	for _, r := range recipes {
		assert.Empty(t, r.ParsedIngredients)
	}

	require.NoError(t, a.Index(ctx, IndexOptions{SkipAPI: true}))

	recipes, err = a.loadLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	for _, r := range recipes {
		assert.NotEmpty(t, r.ParsedIngredients, r.Name)
	}
}

func TestPlanEndToEnd(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	require.NoError(t, a.Index(ctx, IndexOptions{SkipAPI: true}))

	err := a.Plan(ctx, PlanOptions{
		StartDate: "2026-08-31",
		Format:    "json",
		SavePlan:  true,
	})
	require.NoError(t, err)

	stored, err := a.planRepo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2026-08-31", stored[0].StartDate)
	assert.Equal(t, planner.StatusOptimal, stored[0].Status)
}

func TestPlanInvalidStartDate(t *testing.T) {
	a := newTestApp(t)

	err := a.Plan(context.Background(), PlanOptions{StartDate: "next monday"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start date")
}

func TestScaleCommand(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	// Unindexed recipes have no structured ingredients to rescale.
	err := a.Scale(ctx, "beef stew", 8, "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'index' first")

	require.NoError(t, a.Index(ctx, IndexOptions{SkipAPI: true}))
	require.NoError(t, a.Scale(ctx, "beef stew", 8, "json"))

	err = a.Scale(ctx, "xyzzy", 4, "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipe not found")
}

func TestPantryStaples(t *testing.T) {
	a := newTestApp(t)

	staples := a.pantryStaples([]string{"  flour ", "", "sugar"})
	assert.Equal(t, []string{"salt", "olive oil", "flour", "sugar"}, staples)
}

func TestPreferencesFromConfig(t *testing.T) {
	a := newTestApp(t)
	a.cfg.PrepStyles = map[string]string{"Dinner": "fresh"}

	start := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	prefs := a.preferencesFromConfig(start, []string{"Beef Stew"})

	assert.Equal(t, 2000, prefs.DailyCalories)
	assert.Equal(t, planner.PrepStyle("fresh"), prefs.PrepStyles["dinner"])
	assert.Equal(t, []string{"Beef Stew"}, prefs.ExcludedRecipes)
	assert.Equal(t, 3, prefs.PlanDays)
}
