package recipe

import "strings"

// ingredientGroupMap maps raw main_ingredient values (lowercased) to
// canonical group names used by the dinner-diversity constraint.
var ingredientGroupMap = map[string]string{
	// Poultry
	"chicken":            "poultry",
	"turkey":             "poultry",
	"chicken breast":     "poultry",
	"chicken thigh":      "poultry",
	"chicken thighs":     "poultry",
	"chicken drumsticks": "poultry",
	"chicken wings":      "poultry",
	"ground turkey":      "poultry",
	"ground chicken":     "poultry",
	// Beef
	"beef":           "beef",
	"ground beef":    "beef",
	"steak":          "beef",
	"beef stew meat": "beef",
	"corned beef":    "beef",
	// Pork
	"pork":       "pork",
	"pork chops": "pork",
	"pork loin":  "pork",
	"ground pork": "pork",
	"ham":        "pork",
	"bacon":      "pork",
	"sausage":    "pork",
	"chorizo":    "pork",
	"bratwurst":  "pork",
	// Seafood
	"salmon":  "seafood",
	"shrimp":  "seafood",
	"fish":    "seafood",
	"tilapia": "seafood",
	"tuna":    "seafood",
	"crab":    "seafood",
	"cod":     "seafood",
	// Legumes
	"beans":           "legumes",
	"black beans":     "legumes",
	"chickpeas":       "legumes",
	"lentils":         "legumes",
	"kidney beans":    "legumes",
	"pinto beans":     "legumes",
	"white beans":     "legumes",
	"black-eyed peas": "legumes",
	// Tofu / plant protein
	"tofu":   "tofu",
	"tempeh": "tofu",
	// Pasta
	"pasta":      "pasta",
	"spaghetti":  "pasta",
	"rigatoni":   "pasta",
	"penne":      "pasta",
	"ravioli":    "pasta",
	"tortellini": "pasta",
	"gnocchi":    "pasta",
	"noodles":    "pasta",
	// Grains
	"rice":   "grains",
	"quinoa": "grains",
	"barley": "grains",
	"farro":  "grains",
	"oats":   "grains",
	// Eggs
	"eggs": "eggs",
	"egg":  "eggs",
}

// NormalizeIngredientGroup returns the canonical group name for a
// main_ingredient value, or "" when it is unmapped.
func NormalizeIngredientGroup(mainIngredient string) string {
	return ingredientGroupMap[strings.ToLower(strings.TrimSpace(mainIngredient))]
}

// GroupKey is the identity under which a recipe collides with others in
// the dinner-diversity constraint. Named groups collide by group name,
// unmapped but present main ingredients collide by raw lowered value, and
// recipes without a main ingredient never collide ("" key).
func GroupKey(r *Recipe) string {
	if group := NormalizeIngredientGroup(r.MainIngredient); group != "" {
		return "group:" + group
	}
	if raw := strings.ToLower(strings.TrimSpace(r.MainIngredient)); raw != "" {
		return "raw:" + raw
	}
	return ""
}

// GroupTable assigns integer ids to the group keys present in a candidate
// pool, used for all-distinct diversity constraints.
type GroupTable struct {
	// NumGroups is the number of distinct group ids assigned.
	NumGroups int
	// KeyToID maps GroupKey values to their integer ids.
	KeyToID map[string]int
}

// BuildGroupTable collects the group keys of every candidate into an
// id table. Candidates without a group key contribute nothing.
func BuildGroupTable(candidates []*Recipe) GroupTable {
	keyToID := map[string]int{}
	next := 0
	for _, r := range candidates {
		key := GroupKey(r)
		if key == "" {
			continue
		}
		if _, ok := keyToID[key]; !ok {
			keyToID[key] = next
			next++
		}
	}
	return GroupTable{NumGroups: next, KeyToID: keyToID}
}
