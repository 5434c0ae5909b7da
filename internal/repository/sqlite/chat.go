package sqlite

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository manages chats and messages.
type ChatRepository struct {
	db *gorm.DB
}

func (r *ChatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		for i, memberID := range chat.MemberIDs {
			member := chatMember{ChatID: chat.ID, UserID: memberID, Position: i}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
				return fmt.Errorf("add chat member: %w", err)
			}
		}
		return nil
	})
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "chat", id)
	}
	if err := r.loadMembers(ctx, []*models.Chat{&chat}); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	db := r.db.WithContext(ctx)
	joined := db.Model(&chatMember{}).Select("chat_id").Where("user_id = ?", userID)

	var chats []*models.Chat
	if err := db.Where("id IN (?)", joined).Order("updated_at DESC, id").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if err := r.loadMembers(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *ChatRepository) loadMembers(ctx context.Context, chats []*models.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	ids := make([]string, len(chats))
	byID := make(map[string]*models.Chat, len(chats))
	for i, c := range chats {
		ids[i] = c.ID
		byID[c.ID] = c
		c.MemberIDs = []string{}
	}

	var members []chatMember
	if err := r.db.WithContext(ctx).Where("chat_id IN ?", ids).Order("position, user_id").Find(&members).Error; err != nil {
		return fmt.Errorf("list chat members: %w", err)
	}
	for _, m := range members {
		byID[m.ChatID].MemberIDs = append(byID[m.ChatID].MemberIDs, m.UserID)
	}
	return nil
}

func (r *ChatRepository) AddMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Chat{}).Where("id = ?", message.ChatID).Update("updated_at", message.CreatedAt)
		if err := affected(result, "chat", message.ChatID); err != nil {
			return err
		}
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return nil
	})
}

func (r *ChatRepository) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	var messages []*models.Message
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at, id").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
