// Package app wires the subsystems together and implements one method per
// CLI command.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/ingredients"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
)

// App holds the application's dependencies.
type App struct {
	cfg       *config.Config
	vaultPath string
	logger    *zap.Logger

	db            *database.DB
	recipeRepo    *recipe.Repository
	planRepo      *planner.PlanRepository
	mealPlanner   *planner.Planner
	structurer    *ingredients.Structurer
	recipeClipper *clipper.Clipper
	shoppingBuild *shopping.Builder
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	vaultPath string,
	logger *zap.Logger,
	db *database.DB,
	recipeRepo *recipe.Repository,
	planRepo *planner.PlanRepository,
	mealPlanner *planner.Planner,
	structurer *ingredients.Structurer,
	recipeClipper *clipper.Clipper,
	shoppingBuild *shopping.Builder,
) *App {
	return &App{
		cfg:           cfg,
		vaultPath:     vaultPath,
		logger:        logger,
		db:            db,
		recipeRepo:    recipeRepo,
		planRepo:      planRepo,
		mealPlanner:   mealPlanner,
		structurer:    structurer,
		recipeClipper: recipeClipper,
		shoppingBuild: shoppingBuild,
	}
}

func (a *App) cookingPath() string {
	return config.CookingPath(a.vaultPath)
}

// ApplyOverrides merges CLI overrides into the loaded configuration.
func (a *App) ApplyOverrides(o config.Overrides) {
	a.cfg.Apply(o)
}

// loadLibrary parses every recipe note. When a database cache exists, the
// stored structured ingredients are attached to recipes whose ingredient
// hash has not changed since indexing.
func (a *App) loadLibrary(ctx context.Context) ([]*recipe.Recipe, error) {
	recipes, err := recipe.LoadAll(a.cookingPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe library: %w", err)
	}
	if a.recipeRepo == nil {
		return recipes, nil
	}

	for _, r := range recipes {
		if len(r.ParsedIngredients) > 0 {
			continue
		}
		storedHash, err := a.recipeRepo.IngredientsHash(ctx, r.Name)
		if err != nil || storedHash == "" || storedHash != r.IngredientsHash {
			continue
		}
		sections, err := a.recipeRepo.StoredParsedIngredients(ctx, r.Name)
		if err != nil {
			a.logger.Warn("failed to load cached ingredients",
				zap.String("recipe", r.Name),
				zap.Error(err))
			continue
		}
		r.ParsedIngredients = sections
	}
	return recipes, nil
}

// preferencesFromConfig converts the layered config into the planner's
// resolved input.
func (a *App) preferencesFromConfig(startDate time.Time, exclude []string) *planner.Preferences {
	prepStyles := map[string]planner.PrepStyle{}
	for meal, style := range a.cfg.PrepStyles {
		prepStyles[strings.ToLower(meal)] = planner.PrepStyle(style)
	}

	return &planner.Preferences{
		DailyCalories:       a.cfg.Nutrition.DailyCalories,
		DailyProteinG:       a.cfg.Nutrition.DailyProteinG,
		MealAllocation:      a.cfg.Nutrition.MealAllocation,
		PrepStyles:          prepStyles,
		CookDays:            a.cfg.Schedule.CookDays,
		MealsPerDay:         a.cfg.Schedule.MealsPerDay,
		PlanDays:            a.cfg.Schedule.PlanDays,
		MaxFreshTimeMin:     a.cfg.Preferences.MaxPrepTimeMinutes,
		MaxBatchTimeMin:     a.cfg.Preferences.MaxBatchTimeMinutes,
		DietaryTags:         a.cfg.Preferences.DietaryTags,
		ExcludedCuisines:    a.cfg.Preferences.CuisinesExcluded,
		ExcludedIngredients: a.cfg.Preferences.IngredientsExcluded,
		ExcludedRecipes:     exclude,
		RequiredGroups:      a.cfg.Preferences.RequiredIngredientGroups,
		MealTypeWeights:     a.cfg.Solver.MealTypeWeights,
		StartDate:           startDate,
	}
}

func (a *App) solverOptions() planner.Options {
	return planner.Options{
		ServingMultipliers: a.cfg.Solver.ServingMultipliers,
		DeviationThreshold: a.cfg.Solver.DeviationThreshold,
		CalorieWeight:      a.cfg.Solver.CalorieWeight,
		ProteinWeight:      a.cfg.Solver.ProteinWeight,
		TimeBudgetSeconds:  a.cfg.Solver.TimeBudgetSeconds,
	}
}
