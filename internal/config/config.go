// Package config loads meal-planning preferences from the vault's
// meal-preferences.yaml, layered over built-in defaults, with explicit CLI
// override application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultCookingDir is the vault-relative directory holding recipe notes
// and the preferences file.
const DefaultCookingDir = "03. Resources/Cooking"

const preferencesFile = "meal-preferences"

// Config holds all resolved planning preferences.
type Config struct {
	Nutrition     Nutrition         `mapstructure:"nutrition"`
	PrepStyles    map[string]string `mapstructure:"prep_styles"`
	Schedule      Schedule          `mapstructure:"schedule"`
	Preferences   Preferences       `mapstructure:"preferences"`
	Solver        Solver            `mapstructure:"solver"`
	PantryStaples []string          `mapstructure:"pantry_staples"`
}

// Nutrition holds daily macro targets and per-meal allocation fractions.
type Nutrition struct {
	DailyCalories  int                `mapstructure:"daily_calories"`
	DailyProteinG  int                `mapstructure:"daily_protein_g"`
	MealAllocation map[string]float64 `mapstructure:"meal_allocation"`
}

// Schedule describes the planning horizon and cook-day cadence.
type Schedule struct {
	CookDays    []string `mapstructure:"cook_days"`
	MealsPerDay []string `mapstructure:"meals_per_day"`
	PlanDays    int      `mapstructure:"plan_days"`
}

// Preferences holds filtering constraints.
type Preferences struct {
	MaxPrepTimeMinutes       int      `mapstructure:"max_prep_time_minutes"`
	MaxBatchTimeMinutes      int      `mapstructure:"max_batch_time_minutes"`
	DietaryTags              []string `mapstructure:"dietary_tags"`
	CuisinesExcluded         []string `mapstructure:"cuisines_excluded"`
	IngredientsExcluded      []string `mapstructure:"ingredients_excluded"`
	RequiredIngredientGroups []string `mapstructure:"required_ingredient_groups"`
}

// Solver holds the optimizer tunables. These are deliberate configuration
// surface rather than constants so boundary values can be exercised.
type Solver struct {
	ServingMultipliers []float64          `mapstructure:"serving_multipliers"`
	DeviationThreshold float64            `mapstructure:"deviation_threshold"`
	CalorieWeight      float64            `mapstructure:"calorie_weight"`
	ProteinWeight      float64            `mapstructure:"protein_weight"`
	MealTypeWeights    map[string]float64 `mapstructure:"meal_type_weights"`
	TimeBudgetSeconds  int                `mapstructure:"time_budget_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nutrition.daily_calories", 2200)
	v.SetDefault("nutrition.daily_protein_g", 150)
	v.SetDefault("nutrition.meal_allocation", map[string]float64{
		"breakfast": 0.20,
		"lunch":     0.30,
		"dinner":    0.35,
		"snack":     0.15,
	})

	v.SetDefault("prep_styles", map[string]string{
		"breakfast": "batch",
		"lunch":     "leftover",
		"dinner":    "fresh",
		"snack":     "fresh",
	})

	v.SetDefault("schedule.cook_days", []string{"sunday", "wednesday"})
	v.SetDefault("schedule.meals_per_day", []string{"breakfast", "lunch", "dinner", "snack"})
	v.SetDefault("schedule.plan_days", 7)

	v.SetDefault("preferences.max_prep_time_minutes", 60)
	v.SetDefault("preferences.max_batch_time_minutes", 120)
	v.SetDefault("preferences.dietary_tags", []string{})
	v.SetDefault("preferences.cuisines_excluded", []string{})
	v.SetDefault("preferences.ingredients_excluded", []string{})

	v.SetDefault("solver.serving_multipliers", []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0})
	v.SetDefault("solver.deviation_threshold", 0.4)
	v.SetDefault("solver.calorie_weight", 0.4)
	v.SetDefault("solver.protein_weight", 0.6)
	v.SetDefault("solver.time_budget_seconds", 30)

	v.SetDefault("pantry_staples", []string{
		"salt", "black pepper", "olive oil", "butter", "garlic",
		"onion", "rice", "eggs", "soy sauce",
	})
}

// Load reads meal-preferences.yaml from the vault's cooking directory,
// falling back to defaults when the file is absent.
func Load(vaultPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(preferencesFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(vaultPath, DefaultCookingDir))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read meal preferences: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal preferences: %w", err)
	}
	return &cfg, nil
}

// Overrides are the flat CLI overrides that map into nested config.
type Overrides struct {
	Calories      int
	Protein       int
	CookDays      string
	Days          int
	RequireGroups []string
}

// Apply merges CLI overrides into the config. Zero values are ignored.
func (c *Config) Apply(o Overrides) {
	if o.Calories > 0 {
		c.Nutrition.DailyCalories = o.Calories
	}
	if o.Protein > 0 {
		c.Nutrition.DailyProteinG = o.Protein
	}
	if o.CookDays != "" {
		var days []string
		for _, d := range strings.Split(o.CookDays, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				days = append(days, d)
			}
		}
		c.Schedule.CookDays = days
	}
	if o.Days > 0 {
		c.Schedule.PlanDays = o.Days
	}
	if len(o.RequireGroups) > 0 {
		var groups []string
		for _, g := range o.RequireGroups {
			groups = append(groups, strings.ToLower(strings.TrimSpace(g)))
		}
		c.Preferences.RequiredIngredientGroups = groups
	}
}

// EnableSnacks adds a daily snack slot, redistributing 15% of the meal
// allocation when the preferences file did not allocate snacks explicitly.
func (c *Config) EnableSnacks() {
	hasSnack := false
	for _, m := range c.Schedule.MealsPerDay {
		if m == "snack" {
			hasSnack = true
		}
	}
	if !hasSnack {
		c.Schedule.MealsPerDay = append(c.Schedule.MealsPerDay, "snack")
	}

	if _, ok := c.Nutrition.MealAllocation["snack"]; ok {
		return
	}
	total := 0.0
	for _, frac := range c.Nutrition.MealAllocation {
		total += frac
	}
	if total > 0 {
		for meal, frac := range c.Nutrition.MealAllocation {
			c.Nutrition.MealAllocation[meal] = frac / total * 0.85
		}
	}
	c.Nutrition.MealAllocation["snack"] = 0.15
}

// CookingPath resolves the recipe directory under the vault.
func CookingPath(vaultPath string) string {
	return filepath.Join(vaultPath, DefaultCookingDir)
}
