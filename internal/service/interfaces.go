package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/flavor-monk/backend/internal/models"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, name, email, password string) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	ValidateToken(token string) (*types.TokenClaims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// IProfileService defines the interface for questionnaire and profile operations
type IProfileService interface {
	SubmitQuestionnaire(ctx context.Context, userID uuid.UUID, q recommend.Questionnaire) (*recommend.Profile, error)
	GetUserProfile(ctx context.Context, userID string) (*recommend.Profile, error)
	GetProfileHistory(ctx context.Context, userID uuid.UUID) ([]models.UserProfile, error)
}

// IRecipeService defines the interface for recipe catalogue operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	ListRecipes(ctx context.Context, opts ListOptions) ([]models.Recipe, int64, error)
}

// IFeedbackService defines the interface for rating operations
type IFeedbackService interface {
	SubmitRating(ctx context.Context, ev RatingEvent) (bool, error)
	AffinityHistory(ctx context.Context, userID uuid.UUID) ([]models.IngredientAffinity, error)
}

// IInteractionService applies interaction events.
type IInteractionService interface {
	Apply(ctx context.Context, ev InteractionEvent) (bool, error)
}

// IQualityService defines the interface for recipe quality review
type IQualityService interface {
	Evaluate(ctx context.Context, recipeID uuid.UUID) (Verdict, error)
	FlaggedRecipes(ctx context.Context) ([]models.Recipe, error)
	ArchivedRecipe(ctx context.Context, recipeID uuid.UUID) (*ArchivedRecipe, error)
}

// IKojoService defines the interface for the chat assistant
type IKojoService interface {
	Chat(ctx context.Context, userID, message string) (*ChatReply, error)
}

var (
	_ IAuthService                  = (*AuthService)(nil)
	_ IProfileService               = (*ProfileService)(nil)
	_ IRecipeService                = (*RecipeService)(nil)
	_ IFeedbackService              = (*FeedbackService)(nil)
	_ IInteractionService           = (*InteractionService)(nil)
	_ IQualityService               = (*QualityService)(nil)
	_ IKojoService                  = (*KojoService)(nil)
	_ recommend.RecipeStore         = (*RecipeService)(nil)
	_ recommend.VectorStore         = (*VectorService)(nil)
	_ recommend.ProfileStore        = (*ProfileService)(nil)
	_ recommend.InteractionRecorder = (*InteractionService)(nil)
)
