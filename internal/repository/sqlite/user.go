package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository manages users and friendships.
type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q or email %q: %w", user.Username, user.Email, repository.ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	byID := make(map[string]*models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	users := make([]*models.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err, "user", username)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &user, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdateInfo(ctx context.Context, id string, info models.UserInfo) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if info.Location != nil {
		updates["location"] = *info.Location
	}
	if info.Vibe != nil {
		updates["vibe"] = *info.Vibe
	}
	if info.Emojis != nil {
		updates["emojis"] = *info.Emojis
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	return affected(result, "user", id)
}

func (r *UserRepository) UpdateProfilePic(ctx context.Context, id, profilePic string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"profile_pic": profilePic,
		"updated_at":  time.Now().UTC(),
	})
	return affected(result, "user", id)
}

func (r *UserRepository) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("push_token", pushToken)
	return affected(result, "user", id)
}

func (r *UserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	now := time.Now().UTC()
	rows := []friendship{
		{UserID: userID, FriendID: friendID, CreatedAt: now},
		{UserID: friendID, FriendID: userID, CreatedAt: now},
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("add friend: %w", err)
	}
	return nil
}

func (r *UserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	err := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		Delete(&friendship{}).Error
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}
	return nil
}

func (r *UserRepository) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&friendship{}).
		Where("user_id = ?", userID).
		Order("created_at, friend_id").
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return ids, nil
}
