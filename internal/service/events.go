package service

import (
	"time"

	"github.com/pageza/flavor-monk/backend/internal/recommend"
)

// InteractionEvent is the payload of an interaction.recorded task. Its ID
// becomes the interaction's ID, which makes redelivery harmless.
type InteractionEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RecipeID   string    `json:"recipe_id"`
	OccurredAt time.Time `json:"occurred_at"`
	recommend.InteractionFlags
}

// RatingEvent is the payload of a rating.submitted task.
type RatingEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RecipeID   string    `json:"recipe_id"`
	Rating     int       `json:"rating"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
