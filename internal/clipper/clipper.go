// Package clipper imports recipes from the web into vault markdown notes.
package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"meal-planner/internal/llm"
)

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	textGen llm.TextGenerator
	client  *http.Client
}

// ExtractedRecipe represents the data structured by the model.
type ExtractedRecipe struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	MealType    string   `json:"meal_type"`
	Cuisine     string   `json:"cuisine"`
	PrepTimeMin int      `json:"prep_time_min"`
	CookTimeMin int      `json:"cook_time_min"`
	Servings    int      `json:"servings"`
	Calories    *float64 `json:"calories_per_serving"`
	ProteinG    *float64 `json:"protein_g_per_serving"`
}

// NewClipper creates a new Clipper instance.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		textGen: textGen,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

const extractPrompt = `You are a recipe extraction expert. Extract the recipe details from the following page text.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "ingredients": ["1 cup rice", "2 chicken breasts", ...],
  "steps": ["Step 1 description", "Step 2 description", ...],
  "meal_type": "breakfast|lunch|dinner|snack",
  "cuisine": "e.g. Mexican",
  "prep_time_min": 15,
  "cook_time_min": 30,
  "servings": 4,
  "calories_per_serving": 450 or null,
  "protein_g_per_serving": 32 or null
}
Use null for anything the page does not state. Return only the JSON object, no code fences.

Page text:
%s`

// ClipURL fetches the URL, extracts the recipe, and writes a markdown
// note into the cooking directory. Returns the written file path.
func (c *Clipper) ClipURL(ctx context.Context, url, cookingPath string) (string, error) {
	if c.textGen == nil {
		return "", fmt.Errorf("clip requires an LLM backend; set GEMINI_API_KEY")
	}
	content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch content: %w", err)
	}

	response, err := c.textGen.GenerateContent(ctx, fmt.Sprintf(extractPrompt, content))
	if err != nil {
		return "", fmt.Errorf("recipe extraction failed: %w", err)
	}

	extracted, err := decodeExtracted(response)
	if err != nil {
		return "", err
	}
	if extracted.Title == "" {
		return "", fmt.Errorf("extraction produced no recipe title")
	}

	markdown, err := formatNote(extracted, url)
	if err != nil {
		return "", err
	}

	path := filepath.Join(cookingPath, sanitizeFilename(extracted.Title)+".md")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("recipe file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write recipe file: %w", err)
	}
	return path, nil
}

func decodeExtracted(response string) (*ExtractedRecipe, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in extraction response")
	}

	var extracted ExtractedRecipe
	if err := json.Unmarshal([]byte(response[start:end+1]), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return &extracted, nil
}

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

// formatNote renders the extracted recipe as a vault note: frontmatter
// the indexer understands, an Ingredients section, and Directions.
func formatNote(r *ExtractedRecipe, sourceURL string) (string, error) {
	front := map[string]interface{}{
		"type":       "recipe",
		"meal_type":  r.MealType,
		"source_url": sourceURL,
		"clipped_at": time.Now().Format("2006-01-02"),
	}
	if r.Cuisine != "" {
		front["cuisine"] = r.Cuisine
	}
	if r.Servings > 0 {
		front["servings"] = r.Servings
	}
	if r.PrepTimeMin > 0 {
		front["prep_time"] = r.PrepTimeMin
	}
	if r.CookTimeMin > 0 {
		front["cook_time"] = r.CookTimeMin
	}
	if r.Calories != nil {
		front["calories"] = *r.Calories
	}
	if r.ProteinG != nil {
		front["protein_g"] = *r.ProteinG
	}

	frontYAML, err := yaml.Marshal(front)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(frontYAML)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", r.Title)

	b.WriteString("### Ingredients\n\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}
	b.WriteString("\n### Directions\n\n")
	for i, step := range r.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String(), nil
}

// sanitizeFilename strips characters that break vault filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "",
		"<", "", ">", "", "|", "-",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
