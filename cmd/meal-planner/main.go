package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"meal-planner/internal/app"
	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/ingredients"
	"meal-planner/internal/llm"
	"meal-planner/internal/logging"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
	"meal-planner/internal/suggest"
)

func defaultVaultPath() string {
	if v := os.Getenv("MEAL_PLANNER_VAULT"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "obsidian-sync", "Personal")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	ctx := context.Background()

	// Optional; environment variables win over the file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags shared by every subcommand, parsed per flag set.
	addGlobal := func(fs *flag.FlagSet) (*string, *string) {
		vault := fs.String("vault-path", defaultVaultPath(), "Path to Obsidian vault")
		logLevel := fs.String("log-level", "info", "Logging verbosity (debug|info|warn|error)")
		return vault, logLevel
	}

	run := func(vaultPath, logLevel string, withLLM bool, fn func(ctx context.Context, a *app.App) error) {
		logger := logging.New(logLevel, os.Getenv("LOG_FORMAT"))
		defer logger.Sync()

		cfg, err := config.Load(vaultPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := database.NewDB(filepath.Join(config.CookingPath(vaultPath), ".meal-planner", "meal-planner.db"))
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		var textGen llm.TextGenerator
		if withLLM {
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				textGen, err = llm.NewGeminiClient(ctx, key, os.Getenv("GEMINI_MODEL"))
				if err != nil {
					log.Fatalf("Failed to initialize Gemini client: %v", err)
				}
				defer textGen.Close()
			} else {
				logger.Warn("GEMINI_API_KEY not set, falling back to offline ingredient parsing")
			}
		}

		application := app.NewApp(
			cfg,
			vaultPath,
			logger,
			db,
			recipe.NewRepository(db.SQL),
			planner.NewPlanRepository(db.SQL),
			planner.New(logger),
			ingredients.NewStructurer(textGen, logger),
			clipper.NewClipper(textGen),
			shopping.NewBuilder(logger),
		)
		if err := fn(ctx, application); err != nil {
			log.Fatalf("%s failed: %v", os.Args[1], err)
		}
	}

	switch os.Args[1] {
	case "index":
		fs := flag.NewFlagSet("index", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		dryRun := fs.Bool("dry-run", false, "Print stats without writing")
		limit := fs.Int("limit", 0, "Process only N files")
		force := fs.Bool("force", false, "Re-parse even if hash matches")
		skipAPI := fs.Bool("skip-api", false, "Use the line parser instead of the LLM")
		fs.Parse(os.Args[2:])

		run(*vault, *logLevel, !*skipAPI && !*dryRun, func(ctx context.Context, a *app.App) error {
			return a.Index(ctx, app.IndexOptions{
				DryRun:  *dryRun,
				Limit:   *limit,
				Force:   *force,
				SkipAPI: *skipAPI,
			})
		})

	case "suggest":
		fs := flag.NewFlagSet("suggest", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		mealType := fs.String("meal-type", "", "Meal type to suggest for")
		maxTime := fs.Int("max-time", 0, "Maximum total time in minutes")
		cuisine := fs.String("cuisine", "", "Cuisine substring match")
		dietaryTags := fs.String("dietary-tags", "", "Comma-separated required tags")
		exclude := fs.String("exclude", "", "Comma-separated recipe names to exclude")
		available := fs.String("available-ingredients", "", "Comma-separated pantry items")
		targetCalories := fs.Int("target-calories", 0, "Per-meal calorie target")
		targetProtein := fs.Int("target-protein", 0, "Per-meal protein target")
		minProtein := fs.Float64("min-protein", 0, "Minimum protein per serving")
		maxCalories := fs.Float64("max-calories", 0, "Maximum calories per serving")
		limit := fs.Int("limit", 10, "Number of suggestions")
		format := fs.String("format", "table", "Output format (table|json)")
		fs.Parse(os.Args[2:])

		run(*vault, *logLevel, false, func(ctx context.Context, a *app.App) error {
			return a.Suggest(ctx, app.SuggestOptions{
				Request: suggest.Request{
					Filters: suggest.Filters{
						MealType:    *mealType,
						MaxTimeMin:  *maxTime,
						Cuisine:     *cuisine,
						DietaryTags: splitCSV(*dietaryTags),
						Exclude:     splitCSV(*exclude),
						MinProtein:  *minProtein,
						MaxCalories: *maxCalories,
					},
					AvailableIngredients: splitCSV(*available),
					TargetCalories:       *targetCalories,
					TargetProtein:        *targetProtein,
					Limit:                *limit,
				},
				Format: *format,
			})
		})

	case "plan":
		fs := flag.NewFlagSet("plan", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		startDate := fs.String("start-date", "", "Plan start date (YYYY-MM-DD)")
		days := fs.Int("days", 0, "Number of plan days")
		calories := fs.Int("calories", 0, "Daily calorie target override")
		protein := fs.Int("protein", 0, "Daily protein target override")
		cookDays := fs.String("cook-days", "", "Comma-separated cook day names")
		pantry := fs.String("pantry", "", "Comma-separated pantry items")
		exclude := fs.String("exclude", "", "Comma-separated recipe names to exclude")
		snacks := fs.Bool("snacks", false, "Include daily snack slot")
		var pins stringList
		fs.Var(&pins, "pin", `Pin a recipe to a slot as "day:meal:Recipe Name" (repeatable)`)
		var requireGroups stringList
		fs.Var(&requireGroups, "require-group", "Require at least one dinner from this ingredient group (repeatable)")
		recipesOut := fs.Bool("recipes", false, "Include scaled recipes with directions in output")
		shoppingList := fs.Bool("shopping-list", false, "Append a shopping list to the output")
		savePlan := fs.Bool("save-plan", false, "Persist the plan to the database")
		format := fs.String("format", "markdown", "Output format (markdown|json)")
		fs.Parse(os.Args[2:])

		run(*vault, *logLevel, false, func(ctx context.Context, a *app.App) error {
			a.ApplyOverrides(config.Overrides{
				Calories:      *calories,
				Protein:       *protein,
				CookDays:      *cookDays,
				Days:          *days,
				RequireGroups: requireGroups,
			})
			return a.Plan(ctx, app.PlanOptions{
				StartDate:    *startDate,
				Exclude:      splitCSV(*exclude),
				Pins:         pins,
				Snacks:       *snacks,
				Format:       *format,
				Recipes:      *recipesOut,
				ShoppingList: *shoppingList,
				SavePlan:     *savePlan,
				Pantry:       splitCSV(*pantry),
			})
		})

	case "shopping-list":
		fs := flag.NewFlagSet("shopping-list", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		planFile := fs.String("plan-file", "", "Path to plan JSON")
		planID := fs.Int64("plan-id", 0, "Stored plan id")
		pantry := fs.String("pantry", "", "Comma-separated pantry items to subtract")
		format := fs.String("format", "markdown", "Output format (markdown|json)")
		fs.Parse(os.Args[2:])

		run(*vault, *logLevel, false, func(ctx context.Context, a *app.App) error {
			return a.ShoppingList(ctx, app.ShoppingListOptions{
				PlanFile: *planFile,
				PlanID:   *planID,
				Pantry:   splitCSV(*pantry),
				Format:   *format,
			})
		})

	case "scale":
		fs := flag.NewFlagSet("scale", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		servings := fs.Float64("servings", 0, "Target servings")
		format := fs.String("format", "markdown", "Output format (markdown|json)")
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 || *servings <= 0 {
			fmt.Fprintln(os.Stderr, "Usage: meal-planner scale <recipe> --servings N")
			os.Exit(1)
		}

		run(*vault, *logLevel, false, func(ctx context.Context, a *app.App) error {
			return a.Scale(ctx, fs.Arg(0), *servings, *format)
		})

	case "clip":
		fs := flag.NewFlagSet("clip", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: meal-planner clip <url>")
			os.Exit(1)
		}

		run(*vault, *logLevel, true, func(ctx context.Context, a *app.App) error {
			return a.Clip(ctx, fs.Arg(0))
		})

	case "plans":
		fs := flag.NewFlagSet("plans", flag.ExitOnError)
		vault, logLevel := addGlobal(fs)
		limit := fs.Int("limit", 10, "Number of plans to list")
		fs.Parse(os.Args[2:])

		run(*vault, *logLevel, false, func(ctx context.Context, a *app.App) error {
			return a.Plans(ctx, *limit)
		})

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  index          Parse recipe files and build the index")
	fmt.Println("  suggest        Find and rank recipe candidates")
	fmt.Println("  plan           Generate an optimized weekly meal plan")
	fmt.Println("  shopping-list  Generate a shopping list from a plan")
	fmt.Println("  scale          Scale a recipe to N servings")
	fmt.Println("  clip           Import a recipe from a URL")
	fmt.Println("  plans          List stored plans")
}
