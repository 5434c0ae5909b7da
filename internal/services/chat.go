package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	pushTimeout     = 10 * time.Second
	pushConcurrency = 4
	maxPushBatches  = 64
)

// ChatService handles chats, messages and their realtime delivery
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	hub      *MessageHub
	pusher   Pusher
	metrics  *metrics.Metrics

	pushSlots chan struct{}
	pushWG    sync.WaitGroup
}

// NewChatService creates a new chat service
func NewChatService(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	hub *MessageHub,
	pusher Pusher,
	m *metrics.Metrics,
) *ChatService {
	if pusher == nil {
		pusher = NoopPusher{}
	}
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		hub:      hub,
		pusher:   pusher,
		metrics:  m,

		pushSlots: make(chan struct{}, maxPushBatches),
	}
}

// CreateChatInput describes a new chat
type CreateChatInput struct {
	Name      string
	AdminID   string
	MemberIDs []string
}

// PostMessageInput describes a message posted to a chat
type PostMessageInput struct {
	Description string
	AuthorID    string
	Content     string
	Timeslots   []string
	Photo       string
}

// Create creates a chat. The admin is always a member and members are de-duplicated.
func (s *ChatService) Create(ctx context.Context, input CreateChatInput) (*models.Chat, error) {
	adminID := strings.TrimSpace(input.AdminID)

	seen := make(map[string]bool)
	var members []string
	for _, id := range append([]string{adminID}, input.MemberIDs...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: a chat needs at least one member", ErrInvalidInput)
	}

	users, err := s.userRepo.GetByIDs(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if len(users) != len(members) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		for _, id := range members {
			if !found[id] {
				return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
			}
		}
	}

	now := time.Now().UTC()
	chat := &models.Chat{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		AdminID:   adminID,
		MemberIDs: members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	log.Info().Str("chat_id", chat.ID).Int("members", len(members)).Msg("Chat created")

	return s.chatRepo.GetByID(ctx, chat.ID)
}

// Get returns a chat with its member IDs
func (s *ChatService) Get(ctx context.Context, chatID string) (*models.Chat, error) {
	return s.chatRepo.GetByID(ctx, chatID)
}

// ListForUser returns the user's chats, most recently active first
func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	return s.chatRepo.ListByUser(ctx, userID)
}

// Messages returns a chat's messages, oldest first
func (s *ChatService) Messages(ctx context.Context, chatID string) ([]*models.Message, error) {
	return s.chatRepo.ListMessages(ctx, chatID)
}

// PostMessage stores a message, publishes it to subscribers and notifies offline members
func (s *ChatService) PostMessage(ctx context.Context, chatID string, input PostMessageInput) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	authorID := strings.TrimSpace(input.AuthorID)
	if authorID == "" {
		return nil, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	if !chat.HasMember(authorID) {
		return nil, fmt.Errorf("user %s is not a member of chat %s: %w", authorID, chatID, ErrForbidden)
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:          uuid.New().String(),
		ChatID:      chatID,
		Description: input.Description,
		AuthorID:    authorID,
		Content:     input.Content,
		Timeslots:   input.Timeslots,
		Photo:       strings.TrimSpace(input.Photo),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.chatRepo.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	s.metrics.MessagesPosted.Inc()

	delivered := s.hub.Publish(msg, chat.MemberIDs)
	log.Info().
		Str("chat_id", chatID).
		Str("message_id", msg.ID).
		Int("delivered", delivered).
		Msg("Message posted")

	s.notifyOffline(ctx, chat, msg)

	return s.chatRepo.GetByID(ctx, chatID)
}

// notifyOffline pushes to members other than the author that have no open subscription.
// Sends run in the background with their own timeout; failures are logged and never fail the post.
func (s *ChatService) notifyOffline(ctx context.Context, chat *models.Chat, msg *models.Message) {
	var offline []string
	for _, id := range chat.MemberIDs {
		if id != msg.AuthorID && !s.hub.IsOnline(id) {
			offline = append(offline, id)
		}
	}
	if len(offline) == 0 {
		return
	}

	users, err := s.userRepo.GetByIDs(ctx, append(offline, msg.AuthorID))
	if err != nil {
		log.Error().Err(err).Str("chat_id", chat.ID).Msg("Failed to load users for push")
		return
	}

	title := chat.Name
	for _, u := range users {
		if u.ID == msg.AuthorID {
			if title == "" {
				title = u.Username
			} else {
				title = u.Username + " in " + title
			}
		}
	}
	body := msg.Content
	if body == "" {
		body = msg.Description
	}

	var batch []Notification
	for _, u := range users {
		if u.ID == msg.AuthorID || u.PushToken == nil {
			continue
		}
		batch = append(batch, Notification{
			DeviceToken: *u.PushToken,
			Title:       title,
			Body:        body,
			ChatID:      chat.ID,
			MessageID:   msg.ID,
		})
	}
	if len(batch) == 0 {
		return
	}

	select {
	case s.pushSlots <- struct{}{}:
	default:
		log.Warn().Str("chat_id", chat.ID).Int("notifications", len(batch)).Msg("Push queue full, notifications dropped")
		return
	}

	s.pushWG.Add(1)
	go func() {
		defer s.pushWG.Done()
		defer func() { <-s.pushSlots }()
		s.sendBatch(batch)
	}()
}

func (s *ChatService) sendBatch(batch []Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(pushConcurrency)
	for _, n := range batch {
		g.Go(func() error {
			if err := s.pusher.Notify(ctx, n); err != nil {
				log.Error().Err(err).Str("chat_id", n.ChatID).Str("message_id", n.MessageID).Msg("Failed to push message")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// WaitPushes blocks until background push notifications have been sent
func (s *ChatService) WaitPushes() {
	s.pushWG.Wait()
}

// Subscribe opens a message stream for userID. With chatID set, the user must be a member.
func (s *ChatService) Subscribe(ctx context.Context, userID, chatID string) (*Subscription, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if chatID != "" {
		chat, err := s.chatRepo.GetByID(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if !chat.HasMember(userID) {
			return nil, fmt.Errorf("user %s is not a member of chat %s: %w", userID, chatID, ErrForbidden)
		}
	}
	return s.hub.Subscribe(userID, chatID), nil
}

// Unsubscribe closes a stream opened with Subscribe
func (s *ChatService) Unsubscribe(id uint64) {
	s.hub.Unsubscribe(id)
}
