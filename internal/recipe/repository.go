package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository is a database-backed repository for indexed recipes. The
// vault markdown files stay the source of truth; the table is a cache the
// index command refreshes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or replaces a recipe row keyed by name.
func (r *Repository) Save(ctx context.Context, rec *Recipe) error {
	parsed, err := json.Marshal(rec.ParsedIngredients)
	if err != nil {
		return fmt.Errorf("failed to marshal parsed ingredients for %s: %w", rec.Name, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO recipes (
			name, file_path, meal_type, cuisine, main_ingredient,
			calories, protein_g, fat_g, carbs_g, fiber_g,
			servings, total_time_min, rating, dietary_tags,
			ingredients_hash, parsed_ingredients, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			file_path = excluded.file_path,
			meal_type = excluded.meal_type,
			cuisine = excluded.cuisine,
			main_ingredient = excluded.main_ingredient,
			calories = excluded.calories,
			protein_g = excluded.protein_g,
			fat_g = excluded.fat_g,
			carbs_g = excluded.carbs_g,
			fiber_g = excluded.fiber_g,
			servings = excluded.servings,
			total_time_min = excluded.total_time_min,
			rating = excluded.rating,
			dietary_tags = excluded.dietary_tags,
			ingredients_hash = excluded.ingredients_hash,
			parsed_ingredients = excluded.parsed_ingredients,
			indexed_at = excluded.indexed_at`,
		rec.Name, rec.FilePath, rec.MealType, rec.Cuisine, rec.MainIngredient,
		rec.Calories, rec.ProteinG, rec.FatG, rec.CarbsG, rec.FiberG,
		rec.Servings, rec.TotalTimeMin, rec.Rating, strings.Join(rec.DietaryTags, ","),
		rec.IngredientsHash, string(parsed), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recipe %s: %w", rec.Name, err)
	}
	return nil
}

// IngredientsHash returns the stored hash for a recipe name, or "" when
// the recipe has never been indexed. Used to skip re-parsing unchanged
// ingredient lists.
func (r *Repository) IngredientsHash(ctx context.Context, name string) (string, error) {
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT ingredients_hash FROM recipes WHERE name = ?`, name,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load ingredients hash for %s: %w", name, err)
	}
	return hash.String, nil
}

// StoredParsedIngredients loads the cached structured ingredients for a
// recipe, or nil when absent.
func (r *Repository) StoredParsedIngredients(ctx context.Context, name string) ([]IngredientSection, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT parsed_ingredients FROM recipes WHERE name = ?`, name,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parsed ingredients for %s: %w", name, err)
	}
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil, nil
	}

	var sections []IngredientSection
	if err := json.Unmarshal([]byte(raw.String), &sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parsed ingredients for %s: %w", name, err)
	}
	return sections, nil
}

// Count returns the number of indexed recipes.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}
