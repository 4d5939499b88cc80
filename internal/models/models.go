package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"user_id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:190;index" json:"email"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// Conversation participants live in the conversation_participants join table,
// whose (conversation_id, user_id) primary key gives the set its semantics.
type Conversation struct {
	ID           uint      `gorm:"primaryKey" json:"conversation_id"`
	Participants []User    `gorm:"many2many:conversation_participants;constraint:OnDelete:CASCADE;" json:"participants"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"message_id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation"`
	SenderID       uint      `gorm:"index;not null" json:"-"`
	Sender         User      `gorm:"constraint:OnDelete:CASCADE;" json:"sender"`
	MessageBody    string    `gorm:"type:text;not null" json:"message_body"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
