package suggest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/recipe"
)

func fp(v float64) *float64 { return &v }

var now = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func TestApplyFilters(t *testing.T) {
	quick := &recipe.Recipe{Name: "Quick Tacos", MealType: "dinner", TotalTimeMin: 20, Calories: fp(500), ProteinG: fp(35)}
	slow := &recipe.Recipe{Name: "Short Ribs", MealType: "dinner", TotalTimeMin: 240, Calories: fp(900), ProteinG: fp(50)}
	salad := &recipe.Recipe{Name: "Lentil Salad", MealType: "lunch", DietaryTags: []string{"vegan"}, Calories: fp(350), ProteinG: fp(18)}
	all := []*recipe.Recipe{quick, slow, salad}

	assert.Equal(t, []*recipe.Recipe{quick, slow}, applyFilters(all, Filters{MealType: "dinner"}))
	assert.Equal(t, []*recipe.Recipe{quick}, applyFilters(all, Filters{MealType: "dinner", MaxTimeMin: 30}))
	assert.Equal(t, []*recipe.Recipe{salad}, applyFilters(all, Filters{DietaryTags: []string{"vegan"}}))
	assert.Equal(t, []*recipe.Recipe{quick, salad}, applyFilters(all, Filters{Exclude: []string{"ribs"}}))
	assert.Equal(t, []*recipe.Recipe{quick, slow}, applyFilters(all, Filters{MinProtein: 30}))
	assert.Equal(t, []*recipe.Recipe{quick, salad}, applyFilters(all, Filters{MaxCalories: 600}))
}

func TestPantryOverlap(t *testing.T) {
	r := &recipe.Recipe{
		ParsedIngredients: []recipe.IngredientSection{
			{Items: []recipe.ParsedIngredient{
				{Item: "chicken thighs"},
				{Item: "onion"},
				{Item: "coconut milk"},
				{Item: "curry paste"},
			}},
		},
	}

	assert.Equal(t, 0.0, pantryOverlap(r, nil))
	assert.Equal(t, 0.5, pantryOverlap(r, []string{"chicken", "onion"}))
	assert.Equal(t, 1.0, pantryOverlap(r, []string{"chicken", "onion", "coconut", "curry"}))

	empty := &recipe.Recipe{}
	assert.Equal(t, 0.0, pantryOverlap(empty, []string{"chicken"}))
}

func TestMacroFit(t *testing.T) {
	t.Run("perfect fit at a larger serving", func(t *testing.T) {
		r := &recipe.Recipe{Calories: fp(400), ProteinG: fp(30)}
		score, servings := macroFit(r, 800, 60)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Equal(t, 2.0, servings)
	})

	t.Run("no macro data is neutral", func(t *testing.T) {
		score, servings := macroFit(&recipe.Recipe{}, 800, 60)
		assert.Equal(t, 0.5, score)
		assert.Equal(t, 1.0, servings)
	})

	t.Run("single target uses that macro alone", func(t *testing.T) {
		r := &recipe.Recipe{Calories: fp(800), ProteinG: fp(10)}
		score, servings := macroFit(r, 800, 0)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Equal(t, 1.0, servings)
	})
}

func TestScore(t *testing.T) {
	t.Run("recency tiers", func(t *testing.T) {
		mk := func(lastMade string) *recipe.Recipe {
			return &recipe.Recipe{Name: "X", LastMade: lastMade}
		}
		day := func(daysAgo int) string {
			return now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
		}

		assert.Equal(t, 15.0, Score(mk(""), Request{}, now).Breakdown.Recency)
		assert.Equal(t, 0.0, Score(mk(day(2)), Request{}, now).Breakdown.Recency)
		assert.Equal(t, 5.0, Score(mk(day(10)), Request{}, now).Breakdown.Recency)
		assert.Equal(t, 10.0, Score(mk(day(20)), Request{}, now).Breakdown.Recency)
		assert.Equal(t, 15.0, Score(mk(day(90)), Request{}, now).Breakdown.Recency)
	})

	t.Run("rating scales to twenty", func(t *testing.T) {
		rated := &recipe.Recipe{Rating: 5}
		assert.Equal(t, 20.0, Score(rated, Request{}, now).Breakdown.Rating)

		half := &recipe.Recipe{Rating: 2.5}
		assert.Equal(t, 10.0, Score(half, Request{}, now).Breakdown.Rating)

		// Unrated recipes get the neutral midpoint, not zero.
		unrated := &recipe.Recipe{}
		assert.Equal(t, 10.0, Score(unrated, Request{}, now).Breakdown.Rating)
	})

	t.Run("variety rewards tried and favorite", func(t *testing.T) {
		plain := &recipe.Recipe{}
		assert.Equal(t, 10.0, Score(plain, Request{}, now).Breakdown.Variety)

		loved := &recipe.Recipe{Tried: true, Favorite: true}
		assert.Equal(t, 15.0, Score(loved, Request{}, now).Breakdown.Variety)
	})

	t.Run("total sums the dimensions", func(t *testing.T) {
		r := &recipe.Recipe{Rating: 5, Tried: true, Favorite: true}
		sr := Score(r, Request{}, now)
		b := sr.Breakdown
		assert.InDelta(t, b.Pantry+b.Rating+b.Recency+b.MacroFit+b.Variety, sr.Score, 0.05)
	})
}

func TestSuggest(t *testing.T) {
	lib := []*recipe.Recipe{
		{Name: "Plain", MealType: "dinner"},
		{Name: "Loved", MealType: "dinner", Rating: 5, Tried: true, Favorite: true},
		{Name: "Recent", MealType: "dinner", LastMade: now.AddDate(0, 0, -2).Format("2006-01-02")},
	}

	t.Run("higher scores first", func(t *testing.T) {
		got := Suggest(lib, Request{Filters: Filters{MealType: "dinner"}}, now)
		require.Len(t, got, 3)
		assert.Equal(t, "Loved", got[0].Recipe.Name)
		assert.Equal(t, "Recent", got[2].Recipe.Name)
	})

	t.Run("limit caps results", func(t *testing.T) {
		got := Suggest(lib, Request{Filters: Filters{MealType: "dinner"}, Limit: 1}, now)
		require.Len(t, got, 1)
		assert.Equal(t, "Loved", got[0].Recipe.Name)
	})

	t.Run("name breaks score ties", func(t *testing.T) {
		tied := []*recipe.Recipe{{Name: "Zeta", MealType: "dinner"}, {Name: "Alpha", MealType: "dinner"}}
		got := Suggest(tied, Request{Filters: Filters{MealType: "dinner"}}, now)
		require.Len(t, got, 2)
		assert.Equal(t, "Alpha", got[0].Recipe.Name)
	})
}

func TestFormatTable(t *testing.T) {
	scored := Suggest([]*recipe.Recipe{
		{Name: "Beef Chili", MealType: "dinner", Calories: fp(520), ProteinG: fp(38), TotalTimeMin: 45},
	}, Request{Filters: Filters{MealType: "dinner"}}, now)

	out := FormatTable(scored)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Score")
	assert.Contains(t, lines[2], "Beef Chili")
	assert.Contains(t, lines[2], "520")
	assert.Contains(t, lines[2], "38g")
	assert.Contains(t, lines[2], "45m")
}

func TestFormatJSON(t *testing.T) {
	scored := Suggest([]*recipe.Recipe{
		{Name: "Beef Chili", MealType: "dinner", Calories: fp(520)},
	}, Request{Filters: Filters{MealType: "dinner"}}, now)

	out, err := FormatJSON(scored)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Beef Chili"`)
	assert.Contains(t, out, `"score_breakdown"`)
}
