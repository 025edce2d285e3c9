package recipe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	servesRe    = regexp.MustCompile(`(?i)(?:serves?|servings?:?)\s*(\d+)`)
	rangeRe     = regexp.MustCompile(`^(\d+)\s*(?:to|-)\s*(\d+)`)
	leadingNumRe = regexp.MustCompile(`^(\d+)\s*\w*`)
	hoursRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?|h)\b`)
	minutesRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m)\b`)
	bareNumRe   = regexp.MustCompile(`^(\d+)$`)
	ingredientsHeadingRe = regexp.MustCompile(`(?i)^(#{2,3})\s+Ingredients`)
)

// NormalizeServings parses varied servings formats into an integer.
// Handles "Serves 4", "4", "4 servings", "4 to 6 servings" (midpoint),
// "1 Bowl". Returns 0 when unparseable.
func NormalizeServings(raw any) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		if v > 0 {
			return v
		}
		return 0
	case float64:
		if v > 0 {
			return int(v)
		}
		return 0
	}

	s := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if s == "" {
		return 0
	}

	if m := servesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return (lo + hi) / 2
	}
	if m := leadingNumRe.FindStringSubmatch(s); m != nil {
		if n, _ := strconv.Atoi(m[1]); n > 0 {
			return n
		}
	}
	return 0
}

// NormalizeTime parses varied time formats into minutes.
// Handles "10 minutes", "5 mins", 15, "3 hours", "1 hour 30 minutes".
// Returns 0 when unparseable.
func NormalizeTime(raw any) int {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		if v > 0 {
			return v
		}
		return 0
	case float64:
		if v > 0 {
			return int(v)
		}
		return 0
	}

	s := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if s == "" {
		return 0
	}

	total := 0
	if m := hoursRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins
	}
	if total > 0 {
		return total
	}
	if m := bareNumRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// ExtractIngredientsSection pulls the raw ingredient text from a markdown
// body. It looks for an "## Ingredients" or "### Ingredients" heading and
// captures everything until the next heading of equal or higher level.
func ExtractIngredientsSection(content string) string {
	lines := strings.Split(content, "\n")
	inSection := false
	sectionLevel := 0
	var result []string

	for _, line := range lines {
		if !inSection {
			if m := ingredientsHeadingRe.FindStringSubmatch(line); m != nil {
				inSection = true
				sectionLevel = len(m[1])
			}
			continue
		}
		headingRe := regexp.MustCompile(fmt.Sprintf(`^#{1,%d}\s+`, sectionLevel))
		if headingRe.MatchString(line) {
			break
		}
		result = append(result, line)
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}

// ComputeIngredientsHash returns a short stable hash of raw ingredient text,
// used to skip re-parsing unchanged recipes.
func ComputeIngredientsHash(rawIngredients string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawIngredients))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// ParseFile parses a single recipe markdown file. Files without recipe
// frontmatter (type: recipe) return nil without an error, matching the
// vault convention of mixing recipe and non-recipe notes.
func ParseFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	meta, body, err := splitFrontmatter(string(data))
	if err != nil || meta == nil {
		return nil, nil
	}
	if t, _ := meta["type"].(string); t != "recipe" {
		return nil, nil
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	raw := ExtractIngredientsSection(body)

	r := &Recipe{
		Name:            name,
		FilePath:        path,
		Calories:        toFloat(meta["calories"]),
		ProteinG:        toFloat(meta["protein_g"]),
		FatG:            toFloat(meta["fat_g"]),
		CarbsG:          toFloat(meta["carbs_g"]),
		FiberG:          toFloat(meta["fiber_g"]),
		Servings:        NormalizeServings(meta["servings"]),
		PrepTimeMin:     NormalizeTime(meta["prep_time"]),
		CookTimeMin:     NormalizeTime(meta["cook_time"]),
		TotalTimeMin:    NormalizeTime(meta["total_time"]),
		MealType:        toString(meta["meal_type"]),
		Cuisine:         toString(meta["cuisine"]),
		MainIngredient:  toString(meta["main_ingredient"]),
		CookingMethod:   toString(meta["cooking_method"]),
		DietaryTags:     toStringList(meta["dietary_tags"]),
		Categories:      toStringList(meta["categories"]),
		QuickRecipe:     toBool(meta["quick_recipe"]),
		Tried:           toBool(meta["tried"]),
		Favorite:        toBool(meta["favorite"]),
		LastMade:        toString(meta["last_made"]),
		IngredientsHash: toString(meta["ingredients_hash"]),
		RawIngredients:  raw,
	}

	if r.IngredientsHash == "" && raw != "" {
		r.IngredientsHash = ComputeIngredientsHash(raw)
	}
	if rating := toFloat(meta["rating"]); rating != nil {
		r.Rating = *rating
	}
	r.ParsedIngredients = toIngredientSections(meta["parsed_ingredients"])

	return r, nil
}

// splitFrontmatter separates a "---" delimited YAML header from the
// markdown body. Returns a nil map when the document has no frontmatter.
func splitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content, nil
	}
	rest := content[strings.Index(content, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content, nil
	}

	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return nil, content, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return meta, body, nil
}

func toFloat(v any) *float64 {
	switch x := v.(type) {
	case int:
		f := float64(x)
		return &f
	case float64:
		return &x
	case string:
		if x == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return &f
		}
	}
	return nil
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// toStringList accepts either a YAML list or a comma-separated string.
func toStringList(v any) []string {
	switch x := v.(type) {
	case []any:
		var out []string
		for _, item := range x {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		var out []string
		for _, part := range strings.Split(x, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toIngredientSections(v any) []IngredientSection {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var sections []IngredientSection
	for _, s := range raw {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		section := IngredientSection{Section: toString(m["section"])}
		items, _ := m["items"].([]any)
		for _, it := range items {
			im, ok := it.(map[string]any)
			if !ok {
				continue
			}
			section.Items = append(section.Items, ParsedIngredient{
				Qty:   toFloat(im["qty"]),
				Unit:  toString(im["unit"]),
				Item:  toString(im["item"]),
				Notes: toString(im["notes"]),
			})
		}
		sections = append(sections, section)
	}
	return sections
}

// DiscoverFiles finds all markdown files in the cooking directory, sorted
// by name. A positive limit caps the result.
func DiscoverFiles(cookingPath string, limit int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(cookingPath, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe files: %w", err)
	}
	sort.Strings(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LoadAll parses every recipe file in the cooking directory, skipping
// non-recipe notes and unparseable files.
func LoadAll(cookingPath string) ([]*Recipe, error) {
	files, err := DiscoverFiles(cookingPath, 0)
	if err != nil {
		return nil, err
	}
	var recipes []*Recipe
	for _, f := range files {
		r, err := ParseFile(f)
		if err != nil || r == nil {
			continue
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}
