package repository

import (
	"context"
	"errors"

	"bucket-list-backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint would be violated
var ErrDuplicate = errors.New("already exists")

// UserRepository handles persistence of users and friendships
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateInfo(ctx context.Context, id string, info models.UserInfo) error
	UpdateProfilePic(ctx context.Context, id, profilePic string) error
	UpdatePushToken(ctx context.Context, id string, pushToken *string) error
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// BucketRepository handles persistence of buckets and their category/place tree.
// Buckets returned by GetByID and ListByUser carry MemberIDs and the full tree.
type BucketRepository interface {
	Create(ctx context.Context, bucket *models.Bucket) error
	GetByID(ctx context.Context, id string) (*models.Bucket, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Bucket, error)
	AddMember(ctx context.Context, bucketID, userID string) error
	UpdateTitle(ctx context.Context, id, title string) error
	UpdateNotes(ctx context.Context, id, notes string) error
	Delete(ctx context.Context, id string) error

	AddCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	UpdateCategoryLabel(ctx context.Context, id, label string) error
	DeleteCategory(ctx context.Context, id string) error

	AddPlace(ctx context.Context, place *models.Place) error
	GetPlace(ctx context.Context, id string) (*models.Place, error)
	UpdatePlaceName(ctx context.Context, id, name string) error
	UpdatePlaceNotes(ctx context.Context, id, notes string) error
	DeletePlace(ctx context.Context, id string) error
}

// ChatRepository handles persistence of chats and messages
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Chat, error)
	AddMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, chatID string) ([]*models.Message, error)
}

// Store bundles the repositories of one database backend
type Store interface {
	Users() UserRepository
	Buckets() BucketRepository
	Chats() ChatRepository
	Ping(ctx context.Context) error
	Close() error
}
