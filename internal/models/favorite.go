package models

import "time"

// Favorite is a persisted recipe, unique per (UserID, DishName).
type Favorite struct {
	ID         uint         `gorm:"primaryKey" json:"-"`
	UserID     int64        `gorm:"not null;uniqueIndex:idx_favorite_user_dish" json:"user_id"`
	DishName   string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_favorite_user_dish" json:"dish_name"`
	Category   DishCategory `gorm:"type:varchar(32)" json:"category"`
	RecipeText string       `gorm:"type:text" json:"recipe_text"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
