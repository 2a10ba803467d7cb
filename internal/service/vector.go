package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// VectorService is the semantic recipe index. On Postgres it ranks with the
// pgvector cosine operator; elsewhere it scores embeddings in process.
type VectorService struct {
	db       *gorm.DB
	recipes  *RecipeService
	embedder llm.Embedder
	model    string
	logger   *zap.Logger
}

// NewVectorService creates a vector index whose embeddings are produced by
// embedder and labelled with model.
func NewVectorService(db *gorm.DB, recipes *RecipeService, embedder llm.Embedder, model string, logger *zap.Logger) *VectorService {
	return &VectorService{
		db:       db,
		recipes:  recipes,
		embedder: embedder,
		model:    model,
		logger:   logger.Named("vectors"),
	}
}

// DocumentText is the text a recipe is embedded from.
func DocumentText(r *models.Recipe) string {
	ingredients := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ingredients = append(ingredients, ing.Name)
	}
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t.Tag)
	}
	return fmt.Sprintf("%s. %s. Ingredients: %s. Appliances: %s. Tags: %s.",
		r.Name, r.Description,
		strings.Join(ingredients, ", "),
		strings.Join(r.RequiredAppliances, ", "),
		strings.Join(tags, ", "))
}

// IndexRecipe embeds the recipe and stores the vector, replacing any
// previous one.
func (s *VectorService) IndexRecipe(ctx context.Context, recipe *models.Recipe) error {
	vec, err := s.embedder.Embed(ctx, DocumentText(recipe))
	if err != nil {
		return fmt.Errorf("failed to embed recipe: %w", err)
	}
	if len(vec) != models.EmbeddingDimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), models.EmbeddingDimensions)
	}

	row := models.RecipeEmbedding{
		RecipeID:  recipe.ID,
		Embedding: pgvector.NewVector(vec),
		Model:     s.model,
		UpdatedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipe_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "model", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Reindex embeds every recipe that has no embedding yet and reports how
// many it indexed.
func (s *VectorService) Reindex(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("id NOT IN (?)", s.db.Model(&models.RecipeEmbedding{}).Select("recipe_id")).
		Order("id").Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list unindexed recipes: %w", err)
	}
	recipes, err := s.recipes.recipesByID(ctx, ids)
	if err != nil {
		return 0, err
	}
	for i := range recipes {
		if err := s.IndexRecipe(ctx, &recipes[i]); err != nil {
			return i, err
		}
	}
	return len(recipes), nil
}

type scoredID struct {
	RecipeID uuid.UUID
	Distance float64
}

// QuerySimilar implements recommend.VectorStore.
func (s *VectorService) QuerySimilar(ctx context.Context, text string, k int, filter recommend.RecipeFilter) ([]recommend.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filter.Limit, filter.Offset = 0, 0
	candidates := s.recipes.scope(ctx, filter).Select("recipes.id")

	var scored []scoredID
	if s.db.Dialector.Name() == "postgres" {
		err = s.db.WithContext(ctx).Model(&models.RecipeEmbedding{}).
			Select("recipe_id, embedding <=> ? AS distance", pgvector.NewVector(vec)).
			Where("recipe_id IN (?)", candidates).
			Order("distance").Limit(k).
			Scan(&scored).Error
	} else {
		scored, err = s.scoreInProcess(ctx, vec, k, candidates)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}

	ids := make([]uuid.UUID, len(scored))
	distances := make(map[uuid.UUID]float64, len(scored))
	for i, sc := range scored {
		ids[i] = sc.RecipeID
		distances[sc.RecipeID] = sc.Distance
	}
	recipes, err := s.recipes.recipesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]recommend.VectorHit, 0, len(recipes))
	for i := range recipes {
		hits = append(hits, recommend.VectorHit{
			Recipe:   ToCandidate(&recipes[i]),
			Distance: distances[recipes[i].ID],
		})
	}
	return hits, nil
}

func (s *VectorService) scoreInProcess(ctx context.Context, query []float32, k int, candidates *gorm.DB) ([]scoredID, error) {
	var rows []models.RecipeEmbedding
	if err := s.db.WithContext(ctx).Where("recipe_id IN (?)", candidates).Find(&rows).Error; err != nil {
		return nil, err
	}
	scored := make([]scoredID, 0, len(rows))
	for _, row := range rows {
		scored = append(scored, scoredID{
			RecipeID: row.RecipeID,
			Distance: llm.CosineDistance(query, row.Embedding.Slice()),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].RecipeID.String() < scored[j].RecipeID.String()
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
