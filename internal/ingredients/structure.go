package ingredients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"meal-planner/internal/llm"
	"meal-planner/internal/recipe"
)

const structurePrompt = `Convert this markdown ingredient list into JSON.

Output a JSON array of sections. Each section has an optional "section"
name and an "items" array. Each item has:
  "qty": number or null (convert fractions like "1/2" to 0.5; use the
         lower bound of ranges)
  "unit": normalized unit string or "" (cup, tbsp, tsp, oz, lb, g, kg,
          ml, l, clove, can, ...)
  "item": the ingredient name without quantity or unit
  "notes": preparation notes such as "diced" or "optional", or ""

Return only the JSON array, no prose and no code fences.

Ingredients:
%s`

// Structurer converts raw ingredient markdown into structured sections,
// delegating to a text generator and falling back to the line parser when
// the generator is absent or returns undecodable output.
type Structurer struct {
	gen    llm.TextGenerator
	logger *zap.Logger
}

func NewStructurer(gen llm.TextGenerator, logger *zap.Logger) *Structurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structurer{gen: gen, logger: logger}
}

// StructureOffline parses with the line grammar only, never calling the
// generator. Used by index --skip-api.
func (s *Structurer) StructureOffline(markdown string) []recipe.IngredientSection {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	return ParseSection(markdown)
}

// Structure parses one recipe's ingredient markdown.
func (s *Structurer) Structure(ctx context.Context, recipeName, markdown string) []recipe.IngredientSection {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	if s.gen == nil {
		return ParseSection(markdown)
	}

	out, err := s.gen.GenerateContent(ctx, fmt.Sprintf(structurePrompt, markdown))
	if err != nil {
		s.logger.Warn("ingredient structuring failed, using line parser",
			zap.String("recipe", recipeName),
			zap.Error(err))
		return ParseSection(markdown)
	}

	sections, err := decodeSections(out)
	if err != nil {
		s.logger.Warn("undecodable structuring response, using line parser",
			zap.String("recipe", recipeName),
			zap.Error(err))
		return ParseSection(markdown)
	}
	return sections
}

// decodeSections tolerates code fences and leading prose around the JSON
// array.
func decodeSections(out string) ([]recipe.IngredientSection, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")

	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var sections []recipe.IngredientSection
	if err := json.Unmarshal([]byte(out[start:end+1]), &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredient sections: %w", err)
	}
	return sections, nil
}
