package postgres

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, first_name, last_name, username, email, password_hash, birthday,
	location, vibe, emojis, profile_pic, push_token, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Email,
		&user.PasswordHash, &user.Birthday, &user.Location, &user.Vibe, &user.Emojis,
		&user.ProfilePic, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Username, user.Email,
		user.PasswordHash, user.Birthday, user.Location, user.Vibe, user.Emojis,
		user.ProfilePic, user.PushToken, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q or email %q: %w", user.Username, user.Email, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// GetByIDs retrieves users by ID, preserving the order of ids and skipping unknown ones
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		byID[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	users := make([]*models.User, 0, len(byID))
	for _, id := range ids {
		if user, ok := byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return user, nil
}

// UsernameExists checks if a username is taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// EmailExists checks if an email is taken
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// UpdateInfo updates the non-nil profile fields
func (r *UserRepository) UpdateInfo(ctx context.Context, id string, info models.UserInfo) error {
	query := `
		UPDATE users SET
			location = COALESCE($2, location),
			vibe = COALESCE($3, vibe),
			emojis = COALESCE($4, emojis),
			updated_at = now()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, info.Location, info.Vibe, info.Emojis)
	if err != nil {
		return fmt.Errorf("failed to update user info: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// UpdateProfilePic updates the profile picture URL for a user
func (r *UserRepository) UpdateProfilePic(ctx context.Context, id, profilePic string) error {
	query := `UPDATE users SET profile_pic = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, profilePic, id)
	if err != nil {
		return fmt.Errorf("failed to update profile pic: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, id)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// AddFriend records a symmetric friendship
func (r *UserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	query := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

// RemoveFriend removes a friendship in both directions
func (r *UserRepository) RemoveFriend(ctx context.Context, userID, friendID string) error {
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	if _, err := r.db.Exec(ctx, query, userID, friendID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}
	return nil
}

// ListFriendIDs returns the IDs of a user's friends, oldest friendship first
func (r *UserRepository) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT friend_id
		FROM friendships
		WHERE user_id = $1
		ORDER BY created_at, friend_id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan friends: %w", err)
	}
	return ids, nil
}
