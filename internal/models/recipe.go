package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the width of the recipe embedding column.
const EmbeddingDimensions = 768

// Tag categories.
const (
	TagMedical     = "medical"
	TagDietary     = "dietary"
	TagPractical   = "practical"
	TagNutritional = "nutritional"
)

// NutritionFacts are per-serving values.
type NutritionFacts struct {
	Calories      float64 `gorm:"type:float" json:"calories"`
	Protein       float64 `gorm:"type:float" json:"protein"`
	Carbs         float64 `gorm:"type:float" json:"carbs"`
	Fat           float64 `gorm:"type:float" json:"fat"`
	SaturatedFat  float64 `gorm:"type:float" json:"saturated_fat"`
	Sugar         float64 `gorm:"type:float" json:"sugar"`
	Fiber         float64 `gorm:"type:float" json:"fiber"`
	Sodium        float64 `gorm:"type:float" json:"sodium"`
	Omega3        float64 `gorm:"type:float" json:"omega3"`
	GlycemicIndex float64 `gorm:"type:float" json:"glycemic_index"`
}

type Recipe struct {
	ID                 uuid.UUID          `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
	Name               string             `gorm:"size:255;not null" json:"name"`
	Description        string             `gorm:"type:text" json:"description"`
	Cuisine            string             `gorm:"size:50;index" json:"cuisine"`
	PrepTime           int                `json:"prep_time"`
	CookTime           int                `json:"cook_time"`
	TotalTime          int                `json:"total_time"`
	Servings           int                `gorm:"default:1" json:"servings"`
	Complexity         int                `gorm:"not null;default:1" json:"complexity"`
	CostTier           string             `gorm:"size:20" json:"cost_tier"`
	RequiredAppliances StringSet          `json:"required_appliances"`
	Nutrition          NutritionFacts     `gorm:"embedded;embeddedPrefix:nutrition_" json:"nutrition"`
	Source             string             `gorm:"size:50" json:"source"`
	AverageRating      float64            `gorm:"not null;default:0" json:"average_rating"`
	RatingCount        int                `gorm:"not null;default:0" json:"rating_count"`
	StartedCount       int                `gorm:"not null;default:0" json:"started_count"`
	CompletedCount     int                `gorm:"not null;default:0" json:"completed_count"`
	CompletionRate     float64            `gorm:"not null;default:0" json:"completion_rate"`
	QualityScore       float64            `gorm:"not null;default:0" json:"quality_score"`
	FlaggedForReview   bool               `gorm:"not null;default:false" json:"flagged_for_review"`
	Ingredients        []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Steps              []RecipeStep       `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"steps"`
	Tags               []RecipeTag        `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"tags"`
}

type RecipeIngredient struct {
	ID       uint      `gorm:"primarykey" json:"-"`
	RecipeID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"-"`
	Position int       `gorm:"not null" json:"position"`
	Name     string    `gorm:"size:100;not null;index" json:"name"`
	Amount   float64   `json:"amount"`
	Unit     string    `gorm:"size:30" json:"unit"`
}

type RecipeStep struct {
	ID          uint      `gorm:"primarykey" json:"-"`
	RecipeID    uuid.UUID `gorm:"type:varchar(36);not null;index" json:"-"`
	Position    int       `gorm:"not null" json:"position"`
	Instruction string    `gorm:"type:text;not null" json:"instruction"`
}

// RecipeTag associates a recipe with one tag of a category.
type RecipeTag struct {
	ID       uint      `gorm:"primarykey" json:"-"`
	RecipeID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"-"`
	Tag      string    `gorm:"size:50;not null;index" json:"tag"`
	Category string    `gorm:"size:20;not null" json:"category"`
}

// RecipeEmbedding is the semantic vector of a recipe, kept apart from the
// recipe row so catalog reads never load it.
type RecipeEmbedding struct {
	RecipeID  uuid.UUID       `gorm:"type:varchar(36);primarykey" json:"recipe_id"`
	Embedding pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	Model     string          `gorm:"size:100" json:"model"`
	UpdatedAt time.Time       `json:"updated_at"`
}
