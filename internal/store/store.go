package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chats-be/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store holds the lookups shared by the permission checks and the controllers.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// IsParticipant reports whether userID belongs to the conversation's participant set.
func (s *Store) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// UsersByIDs loads every user in ids; missing reports the ids that do not exist.
func (s *Store) UsersByIDs(ctx context.Context, ids []uint) (users []models.User, missing []uint, err error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, nil, err
	}
	found := make(map[uint]bool, len(users))
	for _, u := range users {
		found[u.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return users, missing, nil
}

func (s *Store) ConversationExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
