package models

import (
	"time"

	"helpdesk-realtime-api/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a persisted per-user notification. Creating one also
// pushes it over the realtime channel.
type Notification struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	UserID    int64          `json:"userId" gorm:"index;not null"`
	Title     string         `json:"title" gorm:"not null"`
	Message   string         `json:"message" gorm:"not null"`
	Type      string         `json:"type" gorm:"not null;default:'info'"`
	Category  string         `json:"category,omitempty"`
	Link      string         `json:"link,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	Read      bool           `json:"read" gorm:"index;not null"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TableName specifies the table name for Notification Model
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns a UUID when the caller did not.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Event converts the row into its realtime payload.
func (n *Notification) Event() *events.Notification {
	return &events.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Category:  n.Category,
		Link:      n.Link,
		Icon:      n.Icon,
		Metadata:  n.Metadata,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
