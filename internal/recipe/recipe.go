package recipe

import "strings"

// ParsedIngredient is a single structured ingredient line.
type ParsedIngredient struct {
	Qty   *float64 `json:"qty" yaml:"qty"`
	Unit  string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Item  string   `json:"item" yaml:"item"`
	Notes string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IngredientSection groups ingredient lines under an optional heading
// (e.g. "Sauce", "Marinade").
type IngredientSection struct {
	Section string             `json:"section,omitempty" yaml:"section,omitempty"`
	Items   []ParsedIngredient `json:"items" yaml:"items"`
}

// Recipe is a single recipe note from the vault. Nutrition values are per
// serving. A Recipe is immutable once loaded.
type Recipe struct {
	Name     string
	FilePath string

	Calories *float64
	ProteinG *float64
	FatG     *float64
	CarbsG   *float64
	FiberG   *float64

	Servings       int
	PrepTimeMin    int
	CookTimeMin    int
	TotalTimeMin   int
	MealType       string
	Cuisine        string
	MainIngredient string
	CookingMethod  string
	DietaryTags    []string
	Categories     []string
	Rating         float64
	QuickRecipe    bool
	Tried          bool
	Favorite       bool
	LastMade       string

	ParsedIngredients []IngredientSection
	IngredientsHash   string
	RawIngredients    string
}

// HasNutrition reports whether the recipe carries the macro data the
// optimizer needs.
func (r *Recipe) HasNutrition() bool {
	return r.Calories != nil && r.ProteinG != nil
}

// mealTypeAliases maps a requested meal type to the frontmatter values that
// satisfy it. Lunch and dinner draw from broader categories.
var mealTypeAliases = map[string]map[string]bool{
	"breakfast": {"breakfast": true},
	"lunch":     {"lunch": true, "main course": true, "soup": true},
	"dinner":    {"dinner": true, "main course": true, "soup": true, "curry": true},
	"snack":     {"snack": true, "appetizer": true, "dessert": true, "side": true, "side dish": true},
}

// MatchesMealType reports whether the recipe fits a meal type, considering
// aliases and categories. An empty meal type matches everything.
func (r *Recipe) MatchesMealType(mealType string) bool {
	if mealType == "" {
		return true
	}

	mealType = strings.ToLower(mealType)
	valid := mealTypeAliases[mealType]
	if valid == nil {
		valid = map[string]bool{mealType: true}
	}

	if r.MealType != "" && valid[strings.ToLower(r.MealType)] {
		return true
	}
	for _, cat := range r.Categories {
		if valid[strings.ToLower(cat)] {
			return true
		}
	}
	return false
}

// MatchesDietaryTags reports whether the recipe carries every required tag.
func (r *Recipe) MatchesDietaryTags(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(r.DietaryTags))
	for _, t := range r.DietaryTags {
		have[strings.ToLower(t)] = true
	}
	for _, t := range required {
		if !have[strings.ToLower(t)] {
			return false
		}
	}
	return true
}

// MatchesCuisine reports whether the recipe's cuisine contains the given
// cuisine as a substring. An empty query matches everything.
func (r *Recipe) MatchesCuisine(cuisine string) bool {
	if cuisine == "" {
		return true
	}
	if r.Cuisine == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Cuisine), strings.ToLower(cuisine))
}

// WithinTime reports whether the recipe's total time fits the ceiling.
// Recipes without time information are included rather than excluded.
func (r *Recipe) WithinTime(maxMinutes int) bool {
	if maxMinutes <= 0 || r.TotalTimeMin == 0 {
		return true
	}
	return r.TotalTimeMin <= maxMinutes
}

// NameMatchesAny reports whether any exclusion term appears in the recipe
// name, case-insensitively.
func (r *Recipe) NameMatchesAny(terms []string) bool {
	name := strings.ToLower(r.Name)
	for _, term := range terms {
		if term != "" && strings.Contains(name, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// ContainsIngredient reports whether an excluded-ingredient term appears in
// the recipe's known ingredient text, case-insensitively. Both raw and
// structured ingredients are searched.
func (r *Recipe) ContainsIngredient(term string) bool {
	if term == "" {
		return false
	}
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.RawIngredients), term) {
		return true
	}
	for _, section := range r.ParsedIngredients {
		for _, item := range section.Items {
			if strings.Contains(strings.ToLower(item.Item), term) {
				return true
			}
		}
	}
	return false
}

// FilterOptions are the hard filters applied to a recipe collection.
type FilterOptions struct {
	MealType           string
	MaxTimeMin         int
	Cuisine            string
	DietaryTags        []string
	ExcludeNames       []string
	ExcludeCuisines    []string
	ExcludeIngredients []string
	MinProtein         float64
	MaxCalories        float64
}

// Filter returns the recipes passing every hard filter, in input order.
func Filter(recipes []*Recipe, opts FilterOptions) []*Recipe {
	var out []*Recipe
	for _, r := range recipes {
		if !r.MatchesMealType(opts.MealType) {
			continue
		}
		if !r.WithinTime(opts.MaxTimeMin) {
			continue
		}
		if !r.MatchesCuisine(opts.Cuisine) {
			continue
		}
		if !r.MatchesDietaryTags(opts.DietaryTags) {
			continue
		}
		if r.NameMatchesAny(opts.ExcludeNames) {
			continue
		}
		if excludedCuisine(r, opts.ExcludeCuisines) {
			continue
		}
		if excludedIngredient(r, opts.ExcludeIngredients) {
			continue
		}
		if opts.MinProtein > 0 && r.ProteinG != nil && *r.ProteinG < opts.MinProtein {
			continue
		}
		if opts.MaxCalories > 0 && r.Calories != nil && *r.Calories > opts.MaxCalories {
			continue
		}
		out = append(out, r)
	}
	return out
}

func excludedCuisine(r *Recipe, cuisines []string) bool {
	for _, c := range cuisines {
		if c != "" && r.MatchesCuisine(c) {
			return true
		}
	}
	return false
}

func excludedIngredient(r *Recipe, terms []string) bool {
	for _, term := range terms {
		if r.ContainsIngredient(term) {
			return true
		}
	}
	return false
}
