package models

import "time"

// Message type tags.
const (
	TypeText          = "text"
	TypeDataAnalysis  = "data_analysis"
	TypeVisualization = "visualization"
)

type Message struct {
	ID        int64     `json:"id"`
	ConvID    int64     `json:"conversation_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Type      string    `json:"message_type"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxTitleLength bounds conversation titles, in characters.
const MaxTitleLength = 200
