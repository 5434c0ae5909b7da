package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const jwtExpDays = 30

// UserService handles user-related business logic
type UserService struct {
	userRepo  repository.UserRepository
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, jwtSecret string) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

// RegisterInput holds the fields accepted when registering
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Birthday  string
}

// Credentials identify a user by username or email plus password
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Register creates a new user with a hashed password
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	exists, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("username %q: %w", username, ErrAlreadyExists)
	}

	if email != "" {
		exists, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("email %q: %w", email, ErrAlreadyExists)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Birthday:     strings.TrimSpace(input.Birthday),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login checks the credentials and returns the matching user
func (s *UserService) Login(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user *models.User
		err  error
	)
	switch {
	case strings.TrimSpace(creds.Username) != "":
		user, err = s.userRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	case strings.TrimSpace(creds.Email) != "":
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	default:
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}

// GetByID returns the user or ErrNotFound
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetByIDs returns the users that exist among ids, in order
func (s *UserService) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return s.userRepo.GetByIDs(ctx, ids)
}

// GetByUsername returns the user or ErrNotFound
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	return s.userRepo.GetByUsername(ctx, username)
}

// AddInfo updates location, vibe and emojis; nil fields are left as they are
func (s *UserService) AddInfo(ctx context.Context, userID string, info models.UserInfo) (*models.User, error) {
	if err := s.userRepo.UpdateInfo(ctx, userID, info); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SetProfilePic sets the profile picture URL; an empty URL clears it
func (s *UserService) SetProfilePic(ctx context.Context, userID, profilePic string) (*models.User, error) {
	if err := s.userRepo.UpdateProfilePic(ctx, userID, strings.TrimSpace(profilePic)); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// UpdatePushToken registers or clears (nil) the user's APNs device token
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	if pushToken != nil && strings.TrimSpace(*pushToken) == "" {
		pushToken = nil
	}
	return s.userRepo.UpdatePushToken(ctx, userID, pushToken)
}

// Friends returns the user's friends
func (s *UserService) Friends(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.userRepo.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByIDs(ctx, ids)
}

// AddFriend befriends two users and returns the first user's friends
func (s *UserService) AddFriend(ctx context.Context, userID, friendID string) ([]*models.User, error) {
	if err := s.checkFriendPair(ctx, userID, friendID); err != nil {
		return nil, err
	}
	if err := s.userRepo.AddFriend(ctx, userID, friendID); err != nil {
		return nil, err
	}
	return s.Friends(ctx, userID)
}

// RemoveFriend removes a friendship and returns the first user's friends
func (s *UserService) RemoveFriend(ctx context.Context, userID, friendID string) ([]*models.User, error) {
	if err := s.checkFriendPair(ctx, userID, friendID); err != nil {
		return nil, err
	}
	if err := s.userRepo.RemoveFriend(ctx, userID, friendID); err != nil {
		return nil, err
	}
	return s.Friends(ctx, userID)
}

func (s *UserService) checkFriendPair(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return fmt.Errorf("%w: cannot befriend yourself", ErrInvalidInput)
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, friendID); err != nil {
		return err
	}
	return nil
}
