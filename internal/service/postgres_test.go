package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/service"
	"github.com/pageza/flavor-monk/backend/internal/testhelpers"
)

func TestPostgres_FindRecipesAndQuerySimilar(t *testing.T) {
	db := testhelpers.NewPostgresDB(t)
	recipes := service.NewRecipeService(db, testLogger)
	vectors := service.NewVectorService(db, recipes, llm.NewHashingEmbedder(models.EmbeddingDimensions), "hashing", testLogger)
	recipes.SetIndexer(vectors)
	ctx := context.Background()

	fryer, err := recipes.CreateRecipe(ctx, &models.Recipe{
		Name:               "Air Fryer Chickpeas",
		Description:        "Crispy spiced chickpeas",
		PrepTime:           5,
		CookTime:           15,
		Complexity:         1,
		RequiredAppliances: models.StringSet{"air fryer"},
		Ingredients:        []models.RecipeIngredient{{Name: "chickpeas"}, {Name: "paprika", Position: 1}},
	})
	require.NoError(t, err)
	roast, err := recipes.CreateRecipe(ctx, &models.Recipe{
		Name:               "Oven Roast Chicken",
		Description:        "Whole roast chicken with herbs",
		PrepTime:           20,
		CookTime:           90,
		Complexity:         3,
		RequiredAppliances: models.StringSet{"oven"},
		Ingredients:        []models.RecipeIngredient{{Name: "chicken"}, {Name: "thyme", Position: 1}},
	})
	require.NoError(t, err)

	t.Run("appliance containment runs in SQL", func(t *testing.T) {
		got, err := recipes.FindRecipes(ctx, recommend.RecipeFilter{Appliances: []string{"air fryer", "stovetop"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, fryer.ID.String(), got[0].ID)
	})

	t.Run("pgvector orders by cosine distance", func(t *testing.T) {
		hits, err := vectors.QuerySimilar(ctx, "oven roast chicken with herbs", 2, recommend.RecipeFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, roast.ID.String(), hits[0].Recipe.ID)
		assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	})
}
