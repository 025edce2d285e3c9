package recipe_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/database"
	"meal-planner/internal/recipe"
)

func openRepo(t *testing.T) *recipe.Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return recipe.NewRepository(db.SQL)
}

func fp(v float64) *float64 { return &v }

func TestRepositorySave(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	rec := &recipe.Recipe{
		Name:            "Beef Chili",
		FilePath:        "Beef Chili.md",
		MealType:        "dinner",
		Calories:        fp(520),
		ProteinG:        fp(38),
		Servings:        4,
		DietaryTags:     []string{"gluten-free", "dairy-free"},
		IngredientsHash: "abc123",
		ParsedIngredients: []recipe.IngredientSection{
			{Items: []recipe.ParsedIngredient{{Qty: fp(1), Unit: "lb", Item: "ground beef"}}},
		},
	}
	require.NoError(t, repo.Save(ctx, rec))

	t.Run("round-trips the hash", func(t *testing.T) {
		hash, err := repo.IngredientsHash(ctx, "Beef Chili")
		require.NoError(t, err)
		assert.Equal(t, "abc123", hash)
	})

	t.Run("round-trips parsed ingredients", func(t *testing.T) {
		sections, err := repo.StoredParsedIngredients(ctx, "Beef Chili")
		require.NoError(t, err)
		require.Len(t, sections, 1)
		require.Len(t, sections[0].Items, 1)
		assert.Equal(t, "ground beef", sections[0].Items[0].Item)
		assert.Equal(t, "lb", sections[0].Items[0].Unit)
	})

	t.Run("saving again updates instead of duplicating", func(t *testing.T) {
		rec.IngredientsHash = "def456"
		require.NoError(t, repo.Save(ctx, rec))

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		hash, err := repo.IngredientsHash(ctx, "Beef Chili")
		require.NoError(t, err)
		assert.Equal(t, "def456", hash)
	})

	t.Run("unknown recipe has no hash", func(t *testing.T) {
		hash, err := repo.IngredientsHash(ctx, "Nope")
		require.NoError(t, err)
		assert.Empty(t, hash)

		sections, err := repo.StoredParsedIngredients(ctx, "Nope")
		require.NoError(t, err)
		assert.Nil(t, sections)
	})
}
