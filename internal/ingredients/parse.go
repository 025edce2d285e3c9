// Package ingredients turns raw markdown ingredient lists into structured
// sections, preferring an LLM pass and falling back to a line parser when
// no generator is available or its output cannot be decoded.
package ingredients

import (
	"regexp"
	"strconv"
	"strings"

	"meal-planner/internal/recipe"
)

var (
	bulletRe = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	headingRe = regexp.MustCompile(`^\s*(?:#{2,6}\s+|\*\*)(.+?)(?:\*\*)?\s*:?\s*$`)
	// qty forms: "1", "1.5", "1 1/2", "3/4", "1-2"
	qtyRe = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?(?:\s*-\s*\d+(?:\.\d+)?)?)\s+(.*)$`)
	notesRe = regexp.MustCompile(`\(([^)]*)\)`)
)

var unicodeFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

var knownUnits = map[string]string{
	"cup": "cup", "cups": "cup",
	"tbsp": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"tsp": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"g": "g", "gram": "g", "grams": "g",
	"kg": "kg",
	"ml": "ml", "l": "l", "liter": "l", "liters": "l",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"slice": "slice", "slices": "slice",
	"bunch": "bunch", "bunches": "bunch",
	"head": "head", "heads": "head",
	"stalk": "stalk", "stalks": "stalk",
	"sprig": "sprig", "sprigs": "sprig",
	"pinch": "pinch", "dash": "dash",
	"package": "package", "packages": "package", "pkg": "package",
}

// parseQty converts a quantity token to a float. Ranges take the lower
// bound; mixed numbers and fractions are summed.
func parseQty(token string) (float64, bool) {
	token = strings.TrimSpace(token)
	if i := strings.IndexAny(token, "-"); i > 0 {
		token = strings.TrimSpace(token[:i])
	}
	parts := strings.Fields(token)
	total := 0.0
	for _, part := range parts {
		if num, den, ok := strings.Cut(part, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 != nil || err2 != nil || d == 0 {
				return 0, false
			}
			total += n / d
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		total += v
	}
	return total, len(parts) > 0
}

// expandUnicodeFractions rewrites ½-style runes into ascii fractions so a
// single quantity grammar handles both.
func expandUnicodeFractions(s string) string {
	var b strings.Builder
	for _, r := range s {
		if v, ok := unicodeFractions[r]; ok {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ParseLine decodes one bullet line into a structured ingredient. Lines
// with no recognizable quantity keep the whole text as the item.
func ParseLine(line string) recipe.ParsedIngredient {
	text := expandUnicodeFractions(strings.TrimSpace(line))

	var notes string
	if m := notesRe.FindStringSubmatch(text); m != nil {
		notes = strings.TrimSpace(m[1])
		text = strings.TrimSpace(notesRe.ReplaceAllString(text, ""))
	}

	ing := recipe.ParsedIngredient{Item: text, Notes: notes}
	m := qtyRe.FindStringSubmatch(text)
	if m == nil {
		return ing
	}
	qty, ok := parseQty(m[1])
	if !ok {
		return ing
	}
	rest := strings.TrimSpace(m[2])

	if first, remainder, found := strings.Cut(rest, " "); found {
		if unit, known := knownUnits[strings.ToLower(strings.Trim(first, "."))]; known {
			ing.Unit = unit
			rest = strings.TrimSpace(remainder)
		}
	}
	ing.Qty = &qty
	ing.Item = rest
	return ing
}

// ParseSection splits a markdown ingredients block into sections of
// structured lines. Sub-headings (#### or bold lines) start new sections;
// lines before any heading land in an unnamed section.
func ParseSection(markdown string) []recipe.IngredientSection {
	var sections []recipe.IngredientSection
	current := recipe.IngredientSection{}

	flush := func() {
		if len(current.Items) > 0 {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			current.Items = append(current.Items, ParseLine(m[1]))
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != "" {
			flush()
			current = recipe.IngredientSection{Section: strings.TrimSpace(m[1])}
		}
	}
	flush()
	return sections
}
