package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
}

// UserProfile holds one questionnaire submission. A new submission archives
// the previous one; at most one profile per user is active.
type UserProfile struct {
	ID                       uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID                   uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	PrimaryGoal              string    `gorm:"size:50" json:"primary_goal"`
	SecondaryGoals           StringSet `json:"secondary_goals"`
	CookingSkill             int       `gorm:"not null;default:1" json:"cooking_skill"`
	MaxPrepTime              int       `gorm:"not null;default:30" json:"max_prep_time"`
	Budget                   string    `gorm:"size:20" json:"budget"`
	HouseholdSize            int       `gorm:"default:1" json:"household_size"`
	SpiceTolerance           int       `json:"spice_tolerance"`
	PortionControlMotivation int       `json:"portion_control_motivation"`
	HabitChangeReadiness     StringSet `json:"habit_change_readiness"`
	Appliances               StringSet `json:"appliances"`
	CuisinePreferences       StringSet `json:"cuisine_preferences"`
	NutrientDeficiencies     StringSet `json:"nutrient_deficiencies"`
	Archived                 bool      `gorm:"not null;default:false" json:"archived"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type HealthCondition struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Severity  string    `gorm:"size:20" json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

type Allergen struct {
	ID           uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID       uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	AllergenName string    `gorm:"size:100;not null" json:"allergen_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// IngredientAffinity is the learned, signed liking of one ingredient.
type IngredientAffinity struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID     uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_ingredient" json:"user_id"`
	Ingredient string    `gorm:"size:100;not null;uniqueIndex:idx_user_ingredient" json:"ingredient"`
	Score      float64   `gorm:"not null;default:0" json:"score"`
	UpdatedAt  time.Time `json:"updated_at"`
}
