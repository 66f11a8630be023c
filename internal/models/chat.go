package models

import (
	"time"
)

// DialogueState is the position of a user in the ingredients → category → dish →
// recipe conversation.
type DialogueState string

const (
	StateAwaitingInput          DialogueState = "awaiting_input"
	StateAwaitingCategoryChoice DialogueState = "awaiting_category_choice"
	StateAwaitingDishChoice     DialogueState = "awaiting_dish_choice"
	StateShowingRecipe          DialogueState = "showing_recipe"
)

// Dish is one generated dish candidate.
type Dish struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    DishCategory `json:"category"`
}

// CurrentDish is the pinned dish a recipe is generated for.
type CurrentDish struct {
	Name     string       `json:"name"`
	Category DishCategory `json:"category"`
	Direct   bool         `json:"direct"`
}

// ChatMessage is one entry of the bounded message history.
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is the volatile per-user dialogue state. It is never persisted.
type Session struct {
	UserID          int64          `json:"user_id"`
	State           DialogueState  `json:"state"`
	Products        string         `json:"products,omitempty"`
	Categories      []DishCategory `json:"categories,omitempty"`
	GeneratedDishes []Dish         `json:"generated_dishes,omitempty"`
	CurrentDish     *CurrentDish   `json:"current_dish,omitempty"`
	LastRecipe      string         `json:"last_recipe,omitempty"`
	LastActivity    time.Time      `json:"last_activity"`
	MessageHistory  []ChatMessage  `json:"message_history,omitempty"`
}
