// Package shopping aggregates a meal plan's ingredients into a store
// shopping list grouped by aisle section.
package shopping

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

// SectionOrder is the aisle walk order used for output.
var SectionOrder = []string{
	"Produce",
	"Meat & Seafood",
	"Dairy",
	"Pantry",
	"Spices & Condiments",
	"Frozen",
	"Other",
}

var sectionKeywords = map[string][]string{
	"Produce": {
		"lettuce", "tomato", "onion", "garlic", "pepper", "carrot", "celery",
		"potato", "broccoli", "spinach", "kale", "cabbage", "zucchini",
		"mushroom", "avocado", "lemon", "lime", "ginger", "cilantro",
		"parsley", "basil", "mint", "green onion", "scallion", "jalapeño",
		"jalapeno", "cucumber", "corn", "peas", "bean sprout", "apple",
		"banana", "berry", "mango", "orange", "squash", "sweet potato",
		"cauliflower", "asparagus", "eggplant", "beet", "radish",
	},
	"Meat & Seafood": {
		"chicken", "beef", "pork", "turkey", "salmon", "shrimp", "fish",
		"sausage", "bacon", "ground", "steak", "thigh", "breast",
		"drumstick", "lamb", "tilapia", "tuna", "crab", "meatball", "chorizo",
	},
	"Dairy": {
		"cheese", "milk", "cream", "yogurt", "butter", "egg", "sour cream",
		"cream cheese", "mozzarella", "parmesan", "cheddar", "ricotta",
		"cottage cheese", "whipping cream", "half and half",
	},
	"Pantry": {
		"rice", "pasta", "noodle", "flour", "sugar", "oil", "vinegar",
		"broth", "stock", "can", "canned", "beans", "lentil", "chickpea",
		"coconut milk", "tomato sauce", "tomato paste", "soy sauce",
		"tortilla", "bread", "bun", "pita", "wrap",
	},
	"Spices & Condiments": {
		"salt", "pepper", "cumin", "paprika", "oregano", "thyme", "cinnamon",
		"chili powder", "curry", "turmeric", "cayenne", "nutmeg",
		"garlic powder", "onion powder", "bay leaf", "red pepper flake",
		"hot sauce", "sriracha", "mustard", "ketchup", "mayo", "mayonnaise",
		"honey", "maple syrup", "worcestershire",
	},
	"Frozen": {
		"frozen", "ice cream",
	},
}

var unitAliases = map[string]string{
	"tablespoon": "Tbsp", "tablespoons": "Tbsp", "tbsp": "Tbsp", "tbs": "Tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp",
	"cup": "cup", "cups": "cup", "c": "cup",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"can": "can", "cans": "can",
	"clove": "clove", "cloves": "clove",
	"slice": "slice", "slices": "slice",
	"piece": "piece", "pieces": "piece",
}

// ClassifySection assigns an ingredient name to a store section. Keyword
// order within a section does not matter; the first section with a hit in
// SectionOrder wins so classification is deterministic.
func ClassifySection(itemName string) string {
	lowered := strings.ToLower(itemName)
	for _, section := range SectionOrder {
		for _, kw := range sectionKeywords[section] {
			if strings.Contains(lowered, kw) {
				return section
			}
		}
	}
	return "Other"
}

// NormalizeUnit collapses unit spelling variants for aggregation.
func NormalizeUnit(unit string) string {
	if unit == "" {
		return ""
	}
	u := strings.TrimRight(strings.TrimSpace(strings.ToLower(unit)), ".")
	if norm, ok := unitAliases[u]; ok {
		return norm
	}
	return unit
}

// Item is one aggregated shopping list entry.
type Item struct {
	Item  string   `json:"item"`
	Qty   float64  `json:"qty"`
	Unit  string   `json:"unit,omitempty"`
	Notes []string `json:"notes,omitempty"`
}

// List holds the aggregated items per section, in SectionOrder.
type List struct {
	Sections map[string][]Item
}

// scaledIngredients pairs one recipe's flattened ingredients with the
// factor converting its base servings to the plan's total servings.
type scaledIngredients struct {
	items []recipe.ParsedIngredient
	scale float64
}

// Builder assembles shopping lists from plans and a recipe library.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Build aggregates the plan's ingredients. Slots sharing a recipe combine
// their servings first so each recipe is loaded and scaled once. Pantry
// staples match by substring in either direction and are skipped.
func (b *Builder) Build(plan *planner.MealPlan, library []*recipe.Recipe, pantryStaples []string) *List {
	totalServings := map[string]float64{}
	for _, slot := range plan.Slots {
		if slot.Recipe == "" {
			continue
		}
		totalServings[slot.Recipe] += slot.Servings
	}

	byName := map[string]*recipe.Recipe{}
	for _, r := range library {
		byName[r.Name] = r
	}

	var lists []scaledIngredients
	names := make([]string, 0, len(totalServings))
	for name := range totalServings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			b.logger.Warn("recipe not found in library", zap.String("recipe", name))
			continue
		}
		if len(r.ParsedIngredients) == 0 {
			b.logger.Warn("no parsed ingredients", zap.String("recipe", name))
			continue
		}
		base := r.Servings
		if base == 0 {
			base = 1
		}
		var flat []recipe.ParsedIngredient
		for _, section := range r.ParsedIngredients {
			flat = append(flat, section.Items...)
		}
		lists = append(lists, scaledIngredients{
			items: flat,
			scale: totalServings[name] / float64(base),
		})
	}

	return aggregate(lists, pantryStaples)
}

func aggregate(lists []scaledIngredients, pantryStaples []string) *List {
	pantry := make([]string, 0, len(pantryStaples))
	for _, p := range pantryStaples {
		pantry = append(pantry, strings.ToLower(p))
	}

	type aggKey struct {
		item string
		unit string
	}
	agg := map[aggKey]*Item{}
	var order []aggKey

	for _, list := range lists {
		for _, ing := range list.items {
			itemKey := strings.ToLower(strings.TrimSpace(ing.Item))
			if itemKey == "" || isPantryStaple(itemKey, pantry) {
				continue
			}
			unit := NormalizeUnit(ing.Unit)
			key := aggKey{item: itemKey, unit: unit}
			entry, ok := agg[key]
			if !ok {
				entry = &Item{Item: strings.TrimSpace(ing.Item), Unit: unit}
				agg[key] = entry
				order = append(order, key)
			}
			if ing.Qty != nil {
				entry.Qty += *ing.Qty * list.scale
			}
			if ing.Notes != "" && !contains(entry.Notes, ing.Notes) {
				entry.Notes = append(entry.Notes, ing.Notes)
			}
		}
	}

	sections := map[string][]Item{}
	for _, key := range order {
		entry := agg[key]
		section := ClassifySection(entry.Item)
		sections[section] = append(sections[section], *entry)
	}
	for section := range sections {
		items := sections[section]
		sort.Slice(items, func(i, j int) bool {
			return strings.ToLower(items[i].Item) < strings.ToLower(items[j].Item)
		})
	}
	return &List{Sections: sections}
}

func isPantryStaple(itemKey string, pantry []string) bool {
	for _, p := range pantry {
		if strings.Contains(itemKey, p) || strings.Contains(p, itemKey) {
			return true
		}
	}
	return false
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// FormatQty renders a quantity as a practical fraction when one is close
// enough, otherwise a one-decimal float.
func FormatQty(qty float64) string {
	if qty == 0 {
		return ""
	}
	fractions := []struct {
		value float64
		text  string
	}{
		{0.25, "1/4"}, {0.33, "1/3"}, {0.5, "1/2"}, {0.67, "2/3"}, {0.75, "3/4"},
	}

	whole := int(qty)
	frac := qty - float64(whole)
	if frac > 0 {
		closest := fractions[0]
		for _, f := range fractions[1:] {
			if math.Abs(f.value-frac) < math.Abs(closest.value-frac) {
				closest = f
			}
		}
		if math.Abs(closest.value-frac) < 0.1 {
			if whole > 0 {
				return fmt.Sprintf("%d %s", whole, closest.text)
			}
			return closest.text
		}
	}
	if float64(whole) == qty {
		return fmt.Sprintf("%d", whole)
	}
	return fmt.Sprintf("%.1f", qty)
}

// Markdown renders the list with checkboxes, sections in aisle order.
func (l *List) Markdown() string {
	var b strings.Builder
	b.WriteString("# Shopping List\n\n")
	for _, section := range SectionOrder {
		items, ok := l.Sections[section]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", section)
		for _, entry := range items {
			qty := FormatQty(entry.Qty)
			unit := ""
			if entry.Unit != "" {
				unit = " " + entry.Unit
			}
			notes := ""
			if len(entry.Notes) > 0 {
				notes = fmt.Sprintf(" (%s)", strings.Join(entry.Notes, ", "))
			}
			if qty != "" {
				fmt.Fprintf(&b, "- [ ] %s%s %s%s\n", qty, unit, entry.Item, notes)
			} else {
				fmt.Fprintf(&b, "- [ ] %s%s\n", entry.Item, notes)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// JSON renders the list as an ordered JSON object of sections.
func (l *List) JSON() (string, error) {
	ordered := make(map[string][]Item, len(l.Sections))
	for section, items := range l.Sections {
		ordered[section] = items
	}
	out, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal shopping list: %w", err)
	}
	return string(out), nil
}
