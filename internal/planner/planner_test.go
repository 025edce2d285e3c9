package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/recipe"
)

func fp(v float64) *float64 { return &v }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func testRecipe(name string, cal, protein float64, mealType string) *recipe.Recipe {
	return &recipe.Recipe{
		Name:     name,
		FilePath: name + ".md",
		Calories: fp(cal),
		ProteinG: fp(protein),
		MealType: mealType,
		Servings: 2,
	}
}

func testOptions() Options {
	return Options{
		ServingMultipliers: []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0},
		DeviationThreshold: 0.4,
		CalorieWeight:      0.4,
		ProteinWeight:      0.6,
		TimeBudgetSeconds:  30,
	}
}

// dinnerOnlyPrefs plans three days (Mon-Wed) of fresh dinners cooked on
// Monday and Wednesday, with Tuesday eating leftovers.
func dinnerOnlyPrefs() *Preferences {
	return &Preferences{
		DailyCalories:  2000,
		DailyProteinG:  150,
		MealAllocation: map[string]float64{"dinner": 0.4},
		PrepStyles:     map[string]PrepStyle{"dinner": PrepFresh},
		CookDays:       []string{"monday", "wednesday"},
		MealsPerDay:    []string{"dinner"},
		PlanDays:       3,
	}
}

func TestResolveTargets(t *testing.T) {
	t.Run("splits daily macros by allocation", func(t *testing.T) {
		targets, err := resolveTargets(dinnerOnlyPrefs())
		require.NoError(t, err)
		assert.InDelta(t, 800.0, targets["dinner"].Calories, 1e-9)
		assert.InDelta(t, 60.0, targets["dinner"].ProteinG, 1e-9)
	})

	t.Run("rejects missing allocation", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.MealsPerDay = []string{"dinner", "lunch"}
		_, err := resolveTargets(p)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("rejects negative allocation", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.MealAllocation["dinner"] = -0.1
		_, err := resolveTargets(p)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("rejects non-positive daily calories", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.DailyCalories = 0
		_, err := resolveTargets(p)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestValidatePreferences(t *testing.T) {
	t.Run("rejects empty cook days", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.CookDays = nil
		require.ErrorIs(t, p.Validate(), ErrConfiguration)
	})

	t.Run("rejects unknown cook day", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.CookDays = []string{"someday"}
		require.ErrorIs(t, p.Validate(), ErrConfiguration)
	})

	t.Run("rejects zero plan days", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.PlanDays = 0
		require.ErrorIs(t, p.Validate(), ErrConfiguration)
	})

	t.Run("rejects cook days outside the horizon", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.CookDays = []string{"saturday"}
		p.PlanDays = 3
		require.ErrorIs(t, p.Validate(), ErrConfiguration)
	})
}

func TestBuildSchedule(t *testing.T) {
	p := dinnerOnlyPrefs()
	targets, err := resolveTargets(p)
	require.NoError(t, err)

	t.Run("links leftovers to the previous cook day", func(t *testing.T) {
		slots, err := buildSchedule(p, targets)
		require.NoError(t, err)
		require.Len(t, slots, 3)

		assert.Equal(t, 0, slots[0].Day)
		assert.Equal(t, PrepFresh, slots[0].PrepStyle)
		assert.Equal(t, 1, slots[1].Day)
		assert.Equal(t, PrepLeftover, slots[1].PrepStyle)
		assert.Equal(t, 0, slots[1].SourceIndex)
		assert.Equal(t, 2, slots[2].Day)
		assert.Equal(t, PrepFresh, slots[2].PrepStyle)
	})

	t.Run("wraps leading leftovers to the last cook slot", func(t *testing.T) {
		wrapped := dinnerOnlyPrefs()
		wrapped.CookDays = []string{"wednesday"}
		wrapped.PlanDays = 4
		wrappedTargets, err := resolveTargets(wrapped)
		require.NoError(t, err)

		slots, err := buildSchedule(wrapped, wrappedTargets)
		require.NoError(t, err)
		require.Len(t, slots, 4)

		var cookIdx int
		for _, s := range slots {
			if s.PrepStyle == PrepFresh {
				cookIdx = s.Index
				assert.Equal(t, 2, s.Day)
			}
		}
		for _, s := range slots {
			if s.PrepStyle == PrepLeftover {
				assert.Equal(t, cookIdx, s.SourceIndex)
			}
		}
	})

	t.Run("batch meal cooks once and feeds every day", func(t *testing.T) {
		batch := dinnerOnlyPrefs()
		batch.MealsPerDay = []string{"breakfast"}
		batch.MealAllocation = map[string]float64{"breakfast": 0.2}
		batch.PrepStyles = map[string]PrepStyle{"breakfast": PrepBatch}
		batch.PlanDays = 7
		batchTargets, err := resolveTargets(batch)
		require.NoError(t, err)

		slots, err := buildSchedule(batch, batchTargets)
		require.NoError(t, err)
		require.Len(t, slots, 7)

		cooks := 0
		for _, s := range slots {
			if s.PrepStyle == PrepBatch {
				cooks++
				assert.Equal(t, 0, s.Day)
			} else {
				assert.Equal(t, PrepLeftover, s.PrepStyle)
			}
		}
		assert.Equal(t, 1, cooks)
	})

	t.Run("leftover style without dinner cooks is a config error", func(t *testing.T) {
		lo := dinnerOnlyPrefs()
		lo.MealsPerDay = []string{"lunch"}
		lo.MealAllocation = map[string]float64{"lunch": 0.3}
		lo.PrepStyles = map[string]PrepStyle{"lunch": PrepLeftover}
		loTargets, err := resolveTargets(lo)
		require.NoError(t, err)

		_, err = buildSchedule(lo, loTargets)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestScoreCandidates(t *testing.T) {
	target := Target{Calories: 800, ProteinG: 60}
	opts := testOptions()

	t.Run("perfect fit scores zero deviation", func(t *testing.T) {
		r := testRecipe("Chicken Bowl", 400, 30, "dinner")
		cands := scoreCandidates([]*recipe.Recipe{r}, target, opts)
		require.NotEmpty(t, cands)
		assert.Equal(t, 2.0, cands[0].Multiplier)
		assert.InDelta(t, 0.0, cands[0].Deviation, 1e-9)
		assert.InDelta(t, 800.0, cands[0].Calories, 1e-9)
		assert.InDelta(t, 60.0, cands[0].ProteinG, 1e-9)
	})

	t.Run("drops candidates over the threshold", func(t *testing.T) {
		r := testRecipe("Chicken Bowl", 400, 30, "dinner")
		cands := scoreCandidates([]*recipe.Recipe{r}, target, opts)
		for _, c := range cands {
			assert.LessOrEqual(t, c.Deviation, opts.DeviationThreshold)
		}
		// 0.5x is 200 cal / 15 g, deviation 0.75, gone.
		for _, c := range cands {
			assert.NotEqual(t, 0.5, c.Multiplier)
		}
	})

	t.Run("keeps the closest multiplier when nothing passes", func(t *testing.T) {
		far := testRecipe("Tiny Snack", 50, 2, "dinner")
		limited := opts
		limited.ServingMultipliers = []float64{1.0}
		cands := scoreCandidates([]*recipe.Recipe{far}, target, limited)
		require.Len(t, cands, 1)
		assert.Greater(t, cands[0].Deviation, opts.DeviationThreshold)
	})

	t.Run("the fallback is per recipe, not per slot", func(t *testing.T) {
		fit := testRecipe("Fit Bowl", 400, 30, "dinner")
		poor := testRecipe("Protein Poor", 1000, 5, "dinner")
		cands := scoreCandidates([]*recipe.Recipe{fit, poor}, target, opts)

		var poorCands []Candidate
		for _, c := range cands {
			if c.Recipe.Name == "Protein Poor" {
				poorCands = append(poorCands, c)
			}
		}
		require.Len(t, poorCands, 1)
		assert.Equal(t, 1.0, poorCands[0].Multiplier)
		assert.Greater(t, poorCands[0].Deviation, opts.DeviationThreshold)
	})

	t.Run("tightening the threshold never adds candidates", func(t *testing.T) {
		pool := []*recipe.Recipe{
			testRecipe("Chicken Bowl", 400, 30, "dinner"),
			testRecipe("Protein Poor", 1000, 5, "dinner"),
		}
		prev := -1
		for _, threshold := range []float64{0.6, 0.4, 0.2, 0.1, 0.05} {
			o := opts
			o.DeviationThreshold = threshold
			n := len(scoreCandidates(pool, target, o))
			if prev >= 0 {
				assert.LessOrEqual(t, n, prev, "threshold %v", threshold)
			}
			prev = n
		}
	})

	t.Run("sorted by deviation then name then multiplier", func(t *testing.T) {
		a := testRecipe("Alpha", 400, 30, "dinner")
		b := testRecipe("Beta", 400, 30, "dinner")
		cands := scoreCandidates([]*recipe.Recipe{b, a}, target, opts)
		require.NotEmpty(t, cands)
		for i := 1; i < len(cands); i++ {
			prev, cur := cands[i-1], cands[i]
			if prev.Deviation == cur.Deviation && prev.Recipe.Name == cur.Recipe.Name {
				assert.Less(t, prev.Multiplier, cur.Multiplier)
			}
		}
		assert.Equal(t, "Alpha", cands[0].Recipe.Name)
	})
}

func TestBestLeftoverMultiplier(t *testing.T) {
	opts := testOptions()
	r := testRecipe("Beef Stew", 800, 60, "dinner")

	m, d := bestLeftoverMultiplier(r, Target{Calories: 800, ProteinG: 60}, opts)
	assert.Equal(t, 1.0, m)
	assert.InDelta(t, 0.0, d, 1e-9)

	m, _ = bestLeftoverMultiplier(r, Target{Calories: 400, ProteinG: 30}, opts)
	assert.Equal(t, 0.5, m)
}

func TestBuildPlan(t *testing.T) {
	pl := New(nil)
	library := []*recipe.Recipe{
		testRecipe("Beef Stew", 800, 60, "dinner"),
		testRecipe("Chicken Bowl", 400, 30, "dinner"),
	}

	t.Run("optimal three day dinner plan", func(t *testing.T) {
		res, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)
		assert.Equal(t, StatusOptimal, res.Status)
		assert.InDelta(t, 0.0, res.Objective, 1e-9)
		assert.Empty(t, res.InfeasibleSlots)

		require.Len(t, res.Plan.Slots, 3)
		mon, tue, wed := res.Plan.Slots[0], res.Plan.Slots[1], res.Plan.Slots[2]

		// Beef Stew sorts before Chicken Bowl among zero-cost choices.
		assert.Equal(t, "Beef Stew", mon.Recipe)
		assert.Equal(t, 1.0, mon.Servings)
		assert.InDelta(t, 800.0, mon.Calories, 1e-9)
		assert.InDelta(t, 60.0, mon.ProteinG, 1e-9)

		// Tuesday eats Monday's leftovers, re-portioned to the target.
		assert.Equal(t, PrepLeftover, tue.PrepStyle)
		assert.Equal(t, "Beef Stew", tue.Recipe)
		assert.InDelta(t, 800.0, tue.Calories, 1e-9)

		// Variety forces the second cook onto the other recipe.
		assert.Equal(t, "Chicken Bowl", wed.Recipe)
		assert.Equal(t, 2.0, wed.Servings)
		assert.InDelta(t, 800.0, wed.Calories, 1e-9)
		assert.InDelta(t, 60.0, wed.ProteinG, 1e-9)

		assert.Equal(t, 2, res.Plan.Summary.CookSessions)
		assert.Equal(t, 2, res.Plan.Summary.UniqueRecipes)
		assert.InDelta(t, 2400.0, res.Plan.Summary.TotalCalories, 1e-9)
		assert.InDelta(t, 180.0, res.Plan.Summary.TotalProteinG, 1e-9)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		first, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		second, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		assert.Equal(t, first.Plan, second.Plan)
		assert.Equal(t, first.Objective, second.Objective)
	})

	t.Run("slot with no candidates is reported and left unassigned", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.MealsPerDay = []string{"lunch", "dinner"}
		p.MealAllocation["lunch"] = 0.3
		p.PrepStyles["lunch"] = PrepFresh

		res, err := pl.BuildPlan(context.Background(), library, p, testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)
		assert.Contains(t, res.InfeasibleSlots, "Monday lunch")

		for _, slot := range res.Plan.Slots {
			if slot.MealType == "lunch" {
				assert.Empty(t, slot.Recipe)
			} else {
				assert.NotEmpty(t, slot.Recipe)
			}
		}
		assert.Equal(t, 3, res.Plan.Summary.UnassignedSlots)
	})

	t.Run("variety makes a single recipe infeasible for two cooks", func(t *testing.T) {
		one := []*recipe.Recipe{testRecipe("Beef Stew", 800, 60, "dinner")}
		res, err := pl.BuildPlan(context.Background(), one, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		assert.Equal(t, StatusInfeasible, res.Status)
		assert.Nil(t, res.Plan)
	})

	t.Run("macro-poor recipe still satisfies variety via its fallback", func(t *testing.T) {
		pool := []*recipe.Recipe{
			testRecipe("Fit Bowl", 800, 60, "dinner"),
			testRecipe("Protein Poor", 1000, 5, "dinner"),
		}
		res, err := pl.BuildPlan(context.Background(), pool, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		used := map[string]bool{}
		for _, slot := range res.Plan.Slots {
			used[slot.Recipe] = true
		}
		assert.True(t, used["Fit Bowl"])
		assert.True(t, used["Protein Poor"])
	})

	t.Run("invalid configuration fails before solving", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.CookDays = nil
		_, err := pl.BuildPlan(context.Background(), library, p, testOptions(), nil)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("empty multipliers are a config error", func(t *testing.T) {
		opts := testOptions()
		opts.ServingMultipliers = nil
		_, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), opts, nil)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestBuildPlanPins(t *testing.T) {
	pl := New(nil)
	library := []*recipe.Recipe{
		testRecipe("Beef Stew", 800, 60, "dinner"),
		testRecipe("Chicken Bowl", 400, 30, "dinner"),
	}

	t.Run("pin on a leftover day pins its source cook", func(t *testing.T) {
		res, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(),
			[]string{"tuesday:dinner:Chicken Bowl"})
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		mon := res.Plan.Slots[0]
		assert.Equal(t, "Chicken Bowl", mon.Recipe)
		assert.True(t, mon.Pinned)
		assert.Equal(t, "Chicken Bowl", res.Plan.Slots[1].Recipe)
		assert.Equal(t, "Beef Stew", res.Plan.Slots[2].Recipe)
	})

	t.Run("pins may repeat a recipe across cook days", func(t *testing.T) {
		res, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(),
			[]string{"monday:dinner:Beef Stew", "wednesday:dinner:Beef Stew"})
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		for _, slot := range res.Plan.Slots {
			assert.Equal(t, "Beef Stew", slot.Recipe)
			if slot.PrepStyle != PrepLeftover {
				assert.True(t, slot.Pinned)
			}
		}
	})

	t.Run("conflicting pins on one cook slot fail", func(t *testing.T) {
		_, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(),
			[]string{"monday:dinner:Chicken Bowl", "tuesday:dinner:Beef Stew"})
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("unknown pinned recipe fails", func(t *testing.T) {
		_, err := pl.BuildPlan(context.Background(), library, dinnerOnlyPrefs(), testOptions(),
			[]string{"monday:dinner:Nope"})
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestParsePins(t *testing.T) {
	t.Run("valid grammar", func(t *testing.T) {
		pins, err := ParsePins([]string{"all:dinner:Chicken Curry", "even:lunch:Soup"})
		require.NoError(t, err)
		require.Len(t, pins, 2)
		assert.Equal(t, "all", pins[0].DayPattern)
		assert.Equal(t, "dinner", pins[0].MealType)
		assert.Equal(t, "Chicken Curry", pins[0].RecipeName)
	})

	t.Run("recipe names may contain colons", func(t *testing.T) {
		pins, err := ParsePins([]string{"monday:dinner:Soup: The Sequel"})
		require.NoError(t, err)
		assert.Equal(t, "Soup: The Sequel", pins[0].RecipeName)
	})

	t.Run("malformed pins fail", func(t *testing.T) {
		for _, bad := range []string{"monday:dinner", "someday:dinner:X", "monday:dinner:"} {
			_, err := ParsePins([]string{bad})
			assert.ErrorIs(t, err, ErrConfiguration, bad)
		}
	})

	t.Run("day patterns expand against plan length", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2}, Pin{DayPattern: "all"}.matchDays(3))
		assert.Equal(t, []int{0, 2}, Pin{DayPattern: "even"}.matchDays(3))
		assert.Equal(t, []int{1}, Pin{DayPattern: "odd"}.matchDays(3))
		assert.Equal(t, []int{1}, Pin{DayPattern: "tuesday"}.matchDays(3))
		assert.Empty(t, Pin{DayPattern: "friday"}.matchDays(3))
	})
}

func TestGroupDiversity(t *testing.T) {
	pl := New(nil)
	chicken1 := testRecipe("Chicken Curry", 800, 60, "dinner")
	chicken1.MainIngredient = "chicken"
	chicken2 := testRecipe("Chicken Roast", 800, 60, "dinner")
	chicken2.MainIngredient = "chicken thighs"
	beef := testRecipe("Beef Chili", 800, 60, "dinner")
	beef.MainIngredient = "ground beef"

	t.Run("two dinners cannot share an ingredient group", func(t *testing.T) {
		res, err := pl.BuildPlan(context.Background(),
			[]*recipe.Recipe{chicken1, chicken2, beef}, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		groups := map[string]bool{}
		for _, slot := range res.Plan.Slots {
			if slot.PrepStyle == PrepLeftover {
				continue
			}
			var g string
			switch slot.Recipe {
			case "Beef Chili":
				g = "beef"
			default:
				g = "poultry"
			}
			assert.False(t, groups[g], "duplicate dinner group %s", g)
			groups[g] = true
		}
	})

	t.Run("a single shared group disables diversity", func(t *testing.T) {
		res, err := pl.BuildPlan(context.Background(),
			[]*recipe.Recipe{chicken1, chicken2}, dinnerOnlyPrefs(), testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		recipes := map[string]bool{}
		for _, slot := range res.Plan.Slots {
			if slot.PrepStyle != PrepLeftover {
				recipes[slot.Recipe] = true
			}
		}
		// Variety still holds; only the group constraint is waived.
		assert.Len(t, recipes, 2)
	})

	t.Run("pinned dinners bypass group diversity", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.CookDays = []string{"monday", "tuesday", "wednesday"}
		res, err := pl.BuildPlan(context.Background(),
			[]*recipe.Recipe{chicken1, chicken2, beef}, p, testOptions(),
			[]string{"monday:dinner:Chicken Curry"})
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		poultry := 0
		for _, slot := range res.Plan.Slots {
			if slot.Recipe != "Beef Chili" {
				poultry++
			}
		}
		// The pin and one free dinner may share poultry; the two free
		// dinners still split across groups.
		assert.Equal(t, 2, poultry)
		assert.True(t, res.Plan.Slots[0].Pinned)
	})

	t.Run("required group must appear in a dinner", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.RequiredGroups = []string{"beef"}
		res, err := pl.BuildPlan(context.Background(),
			[]*recipe.Recipe{chicken1, chicken2, beef}, p, testOptions(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.Plan)

		found := false
		for _, slot := range res.Plan.Slots {
			if slot.Recipe == "Beef Chili" && slot.PrepStyle != PrepLeftover {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("required group with no candidates is a config error", func(t *testing.T) {
		p := dinnerOnlyPrefs()
		p.RequiredGroups = []string{"seafood"}
		_, err := pl.BuildPlan(context.Background(),
			[]*recipe.Recipe{chicken1, beef}, p, testOptions(), nil)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestNextMonday(t *testing.T) {
	// 2026-08-29 is a Saturday.
	sat := mustDate(t, "2026-08-29")
	assert.Equal(t, "2026-08-31", NextMonday(sat).Format("2006-01-02"))

	// From a Monday, the next Monday is a week out.
	mon := mustDate(t, "2026-08-31")
	assert.Equal(t, "2026-09-07", NextMonday(mon).Format("2006-01-02"))
}
