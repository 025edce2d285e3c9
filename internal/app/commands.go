package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/render"
	"meal-planner/internal/scaler"
	"meal-planner/internal/suggest"
)

// IndexOptions control the index command.
type IndexOptions struct {
	DryRun  bool
	Limit   int
	Force   bool
	SkipAPI bool
}

// IndexStats summarizes one index run.
type IndexStats struct {
	TotalFiles            int `json:"total_files"`
	ParsedOK              int `json:"parsed_ok"`
	ParseErrors           int `json:"parse_errors"`
	WithIngredients       int `json:"with_ingredients"`
	WithNutrition         int `json:"with_nutrition"`
	WithParsedIngredients int `json:"with_parsed_ingredients"`
	ServingsParsed        int `json:"servings_parsed"`
	ServingsUnparseable   int `json:"servings_unparseable"`
}

// Index parses every recipe note, structures ingredient lists, and caches
// the results in the database. A dry run prints statistics only.
func (a *App) Index(ctx context.Context, opts IndexOptions) error {
	files, err := recipe.DiscoverFiles(a.cookingPath(), opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to discover recipe files: %w", err)
	}

	stats := IndexStats{TotalFiles: len(files)}
	var recipes []*recipe.Recipe
	for _, f := range files {
		r, err := recipe.ParseFile(f)
		if err != nil || r == nil {
			stats.ParseErrors++
			a.logger.Debug("skipped non-recipe file", zap.String("file", f))
			continue
		}
		stats.ParsedOK++
		recipes = append(recipes, r)

		if r.RawIngredients != "" {
			stats.WithIngredients++
		}
		if r.HasNutrition() {
			stats.WithNutrition++
		}
		if len(r.ParsedIngredients) > 0 {
			stats.WithParsedIngredients++
		}
		if r.Servings > 0 {
			stats.ServingsParsed++
		} else {
			stats.ServingsUnparseable++
		}
	}

	if !opts.DryRun {
		stats.WithParsedIngredients = 0
		for _, r := range recipes {
			if err := a.structureAndSave(ctx, r, opts); err != nil {
				return err
			}
			if len(r.ParsedIngredients) > 0 {
				stats.WithParsedIngredients++
			}
		}
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index stats: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// structureAndSave fills in structured ingredients for one recipe and
// upserts its row. Recipes whose ingredient hash matches the cache are
// skipped unless forced.
func (a *App) structureAndSave(ctx context.Context, r *recipe.Recipe, opts IndexOptions) error {
	if r.RawIngredients != "" && len(r.ParsedIngredients) == 0 {
		storedHash, err := a.recipeRepo.IngredientsHash(ctx, r.Name)
		if err != nil {
			return err
		}
		if !opts.Force && storedHash == r.IngredientsHash {
			cached, err := a.recipeRepo.StoredParsedIngredients(ctx, r.Name)
			if err == nil && cached != nil {
				r.ParsedIngredients = cached
			}
		}
		if len(r.ParsedIngredients) == 0 {
			if opts.SkipAPI {
				r.ParsedIngredients = a.structurer.StructureOffline(r.RawIngredients)
			} else {
				r.ParsedIngredients = a.structurer.Structure(ctx, r.Name, r.RawIngredients)
			}
		}
	}
	return a.recipeRepo.Save(ctx, r)
}

// SuggestOptions wraps the suggest request plus output format.
type SuggestOptions struct {
	Request suggest.Request
	Format  string
}

// Suggest filters and ranks recipes, printing a table or JSON.
func (a *App) Suggest(ctx context.Context, opts SuggestOptions) error {
	recipes, err := a.loadLibrary(ctx)
	if err != nil {
		return err
	}

	scored := suggest.Suggest(recipes, opts.Request, time.Now())
	if len(scored) == 0 {
		a.logger.Warn("no recipes match the given filters")
		return nil
	}

	if opts.Format == "json" {
		out, err := suggest.FormatJSON(scored)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(suggest.FormatTable(scored))
	return nil
}

// PlanOptions control the plan command.
type PlanOptions struct {
	StartDate    string
	Exclude      []string
	Pins         []string
	Snacks       bool
	Format       string
	Recipes      bool
	ShoppingList bool
	SavePlan     bool
	Pantry       []string
}

// Plan builds the optimized weekly plan and renders it.
func (a *App) Plan(ctx context.Context, opts PlanOptions) error {
	if opts.Snacks {
		a.cfg.EnableSnacks()
	}

	startDate := planner.NextMonday(time.Now())
	if opts.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", opts.StartDate)
		if err != nil {
			return fmt.Errorf("invalid start date %q: %w", opts.StartDate, err)
		}
		startDate = parsed
	}

	recipes, err := a.loadLibrary(ctx)
	if err != nil {
		return err
	}

	prefs := a.preferencesFromConfig(startDate, opts.Exclude)
	result, err := a.mealPlanner.BuildPlan(ctx, recipes, prefs, a.solverOptions(), opts.Pins)
	if err != nil {
		return err
	}

	for _, slot := range result.InfeasibleSlots {
		fmt.Fprintf(os.Stderr, "Warning: no candidates for %s; slot left unassigned\n", slot)
	}
	if result.Plan == nil {
		return fmt.Errorf("no feasible plan found (status: %s)", result.Status)
	}

	if a.planRepo != nil && opts.SavePlan {
		id, err := a.planRepo.Save(ctx, result)
		if err != nil {
			return err
		}
		a.logger.Info("plan saved", zap.Int64("plan_id", id))
	}

	if opts.Format == "json" {
		out, err := render.PlanJSON(result.Plan)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	fmt.Print(render.PlanMarkdown(result.Plan, time.Now()))
	if opts.Recipes {
		fmt.Print(render.PlanRecipes(result.Plan, recipes))
	}
	if opts.ShoppingList {
		list := a.shoppingBuild.Build(result.Plan, recipes, a.pantryStaples(opts.Pantry))
		fmt.Print(list.Markdown())
	}
	return nil
}

func (a *App) pantryStaples(extra []string) []string {
	staples := append([]string{}, a.cfg.PantryStaples...)
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			staples = append(staples, p)
		}
	}
	return staples
}

// ShoppingListOptions control the shopping-list command.
type ShoppingListOptions struct {
	PlanFile string
	PlanID   int64
	Pantry   []string
	Format   string
}

// ShoppingList aggregates ingredients from a stored or file-based plan.
func (a *App) ShoppingList(ctx context.Context, opts ShoppingListOptions) error {
	var plan planner.MealPlan
	switch {
	case opts.PlanFile != "":
		data, err := os.ReadFile(opts.PlanFile)
		if err != nil {
			return fmt.Errorf("failed to read plan file: %w", err)
		}
		if err := json.Unmarshal(data, &plan); err != nil {
			return fmt.Errorf("failed to parse plan file: %w", err)
		}
	case opts.PlanID > 0:
		_, stored, err := a.planRepo.Get(ctx, opts.PlanID)
		if err != nil {
			return err
		}
		plan = *stored
	default:
		return fmt.Errorf("either --plan-file or --plan-id is required")
	}

	recipes, err := a.loadLibrary(ctx)
	if err != nil {
		return err
	}

	list := a.shoppingBuild.Build(&plan, recipes, a.pantryStaples(opts.Pantry))
	if len(list.Sections) == 0 {
		a.logger.Warn("no ingredients to list")
		return nil
	}

	if opts.Format == "json" {
		out, err := list.JSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(list.Markdown())
	return nil
}

// Scale rescales one recipe to a target serving count.
func (a *App) Scale(ctx context.Context, name string, servings float64, format string) error {
	recipes, err := a.loadLibrary(ctx)
	if err != nil {
		return err
	}

	r := scaler.FuzzyMatch(recipes, name)
	if r == nil {
		return fmt.Errorf("recipe not found: %s", name)
	}
	if len(r.ParsedIngredients) == 0 {
		return fmt.Errorf("recipe %q has no parsed ingredients; run 'index' first", r.Name)
	}

	scaled := scaler.Scale(r, servings)
	if format == "json" {
		out, err := scaled.JSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
	fmt.Print(scaled.Markdown())
	return nil
}

// Clip imports a recipe from a URL into the vault.
func (a *App) Clip(ctx context.Context, url string) error {
	path, err := a.recipeClipper.ClipURL(ctx, url, a.cookingPath())
	if err != nil {
		return err
	}
	fmt.Printf("Clipped recipe to %s\n", path)
	return nil
}

// Plans lists recently stored plans.
func (a *App) Plans(ctx context.Context, limit int) error {
	plans, err := a.planRepo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No stored plans.")
		return nil
	}
	for _, p := range plans {
		fmt.Printf("%-5d %-12s %-10s obj=%.3f  %s\n",
			p.ID, p.StartDate, p.Status, p.Objective, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
