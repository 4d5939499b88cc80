package filters

import (
	"gorm.io/gorm"
)

// participantConversations selects the ids of conversations userID takes part in.
func participantConversations(db *gorm.DB, userID uint) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("conversation_participants").
		Select("conversation_id").
		Where("user_id = ?", userID)
}

// ParticipatingConversations limits a conversations query to those userID belongs to.
func ParticipatingConversations(userID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("conversations.id IN (?)", participantConversations(db, userID))
	}
}

// InParticipatingConversations limits a messages query to conversations userID belongs to.
func InParticipatingConversations(userID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("messages.conversation_id IN (?)", participantConversations(db, userID))
	}
}

// MessageFilters are the query parameters accepted by the message list.
var MessageFilters = FilterSet{
	"conversation":   Number("messages.conversation_id", "="),
	"participant":    Method(InParticipatingConversations),
	"sender":         Number("messages.sender_id", "="),
	"created_after":  IsoDateTime("messages.created_at", ">="),
	"created_before": IsoDateTime("messages.created_at", "<="),
}

var MessageSearch = SearchFilter{
	Fields: []string{
		Like("messages.message_body"),
		"messages.sender_id IN (SELECT users.id FROM users WHERE " + Like("users.username") + ")",
	},
}

var MessageOrdering = OrderingFilter{
	Fields:   map[string]string{"created_at": "messages.created_at"},
	Default:  []string{"-created_at"},
	Tiebreak: "messages.id",
}

// Chronological orders a conversation's messages oldest first.
func Chronological(db *gorm.DB) *gorm.DB {
	return db.Order("messages.created_at ASC").Order("messages.id ASC")
}

const participantUsers = "conversations.id IN (SELECT conversation_participants.conversation_id FROM conversation_participants " +
	"JOIN users ON users.id = conversation_participants.user_id WHERE "

var ConversationSearch = SearchFilter{
	Fields: []string{
		participantUsers + Like("users.username") + ")",
		participantUsers + Like("users.email") + ")",
	},
}

// NewestConversations orders conversations newest first.
func NewestConversations(db *gorm.DB) *gorm.DB {
	return db.Order("conversations.created_at DESC").Order("conversations.id DESC")
}
