package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
)

func setupVectorTest(t *testing.T) (*gorm.DB, *service.RecipeService, *service.VectorService) {
	db := testhelpers.NewSQLiteDB(t)
	recipes := service.NewRecipeService(db, testLogger)
	vectors := service.NewVectorService(db, recipes, llm.NewHashingEmbedder(models.EmbeddingDimensions), "hashing", testLogger)
	recipes.SetIndexer(vectors)
	return db, recipes, vectors
}

func TestVectorService_QuerySimilar(t *testing.T) {
	_, recipes, vectors := setupVectorTest(t)
	ctx := context.Background()

	curry, err := recipes.CreateRecipe(ctx, &models.Recipe{
		Name:        "Thai Green Curry",
		Description: "Fragrant green curry with vegetables",
		Complexity:  2,
		Ingredients: []models.RecipeIngredient{{Name: "coconut milk"}, {Name: "green curry paste", Position: 1}},
	})
	require.NoError(t, err)
	cake, err := recipes.CreateRecipe(ctx, &models.Recipe{
		Name:        "Chocolate Cake",
		Description: "Rich dessert for birthdays",
		Complexity:  3,
		Ingredients: []models.RecipeIngredient{{Name: "cocoa"}, {Name: "butter", Position: 1}},
	})
	require.NoError(t, err)

	hits, err := vectors.QuerySimilar(ctx, "thai green curry", 5, recommend.RecipeFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, curry.ID.String(), hits[0].Recipe.ID)
	assert.Equal(t, cake.ID.String(), hits[1].Recipe.ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
	assert.Equal(t, []string{"coconut milk", "green curry paste"}, hits[0].Recipe.IngredientNames())

	t.Run("k bounds the result", func(t *testing.T) {
		hits, err := vectors.QuerySimilar(ctx, "thai green curry", 1, recommend.RecipeFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, curry.ID.String(), hits[0].Recipe.ID)
	})

	t.Run("filters restrict the candidates", func(t *testing.T) {
		hits, err := vectors.QuerySimilar(ctx, "thai green curry", 5, recommend.RecipeFilter{ExcludeIngredients: []string{"coconut"}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, cake.ID.String(), hits[0].Recipe.ID)
	})

	t.Run("zero k", func(t *testing.T) {
		hits, err := vectors.QuerySimilar(ctx, "curry", 0, recommend.RecipeFilter{})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestVectorService_Reindex(t *testing.T) {
	db, _, vectors := setupVectorTest(t)
	ctx := context.Background()

	testhelpers.CreateTestRecipe(t, db, "lentil soup")
	testhelpers.CreateTestRecipe(t, db, "bean chili")

	n, err := vectors.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var count int64
	require.NoError(t, db.Model(&models.RecipeEmbedding{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	n, err = vectors.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestVectorService_IndexRecipeReplacesVector(t *testing.T) {
	db, _, vectors := setupVectorTest(t)
	ctx := context.Background()
	recipe := testhelpers.CreateTestRecipe(t, db, "porridge")

	require.NoError(t, vectors.IndexRecipe(ctx, recipe))
	recipe.Description = "oats cooked slowly in milk"
	require.NoError(t, vectors.IndexRecipe(ctx, recipe))

	var rows []models.RecipeEmbedding
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Embedding.Slice(), models.EmbeddingDimensions)
	assert.Equal(t, "hashing", rows[0].Model)
}

func TestVectorService_RejectsWrongDimensions(t *testing.T) {
	db := testhelpers.NewSQLiteDB(t)
	recipes := service.NewRecipeService(db, testLogger)
	vectors := service.NewVectorService(db, recipes, llm.NewHashingEmbedder(16), "tiny", testLogger)
	recipe := testhelpers.CreateTestRecipe(t, db, "toast")

	err := vectors.IndexRecipe(context.Background(), recipe)
	assert.ErrorContains(t, err, "16 dimensions")
}

func TestDocumentText(t *testing.T) {
	r := &models.Recipe{
		Name:               "Pancakes",
		Description:        "Fluffy",
		RequiredAppliances: models.StringSet{"stovetop"},
		Ingredients:        []models.RecipeIngredient{{Name: "flour"}, {Name: "egg"}},
		Tags:               []models.RecipeTag{{Tag: "breakfast"}},
	}
	assert.Equal(t, "Pancakes. Fluffy. Ingredients: flour, egg. Appliances: stovetop. Tags: breakfast.", service.DocumentText(r))
}
