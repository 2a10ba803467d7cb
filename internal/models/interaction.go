package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction is an append-only record of what a user did with a recipe.
// The id is the id of the event that produced it.
type Interaction struct {
	ID                uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID            uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	RecipeID          uuid.UUID `gorm:"type:varchar(36);not null;index" json:"recipe_id"`
	Viewed            bool      `json:"viewed"`
	Saved             bool      `json:"saved"`
	Started           bool      `json:"started"`
	Completed         bool      `json:"completed"`
	PhotoUploaded     bool      `json:"photo_uploaded"`
	SharedWithFriends bool      `json:"shared_with_friends"`
	MadeAgain         bool      `json:"made_again"`
	CreatedAt         time.Time `json:"created_at"`
}

// RecipeRating is an append-only rating.
type RecipeRating struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;index" json:"recipe_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// RecipeArchive records where the snapshot of an archived recipe went.
type RecipeArchive struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	RecipeID       uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex" json:"recipe_id"`
	Reason         string    `gorm:"type:text;not null" json:"reason"`
	SnapshotKey    string    `gorm:"size:255;not null" json:"snapshot_key"`
	AverageRating  float64   `json:"average_rating"`
	RatingCount    int       `json:"rating_count"`
	CompletionRate float64   `json:"completion_rate"`
	CreatedAt      time.Time `json:"created_at"`
}

// All returns every model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&HealthCondition{},
		&Allergen{},
		&IngredientAffinity{},
		&Recipe{},
		&RecipeIngredient{},
		&RecipeStep{},
		&RecipeTag{},
		&RecipeEmbedding{},
		&Interaction{},
		&RecipeRating{},
		&RecipeArchive{},
	}
}
