package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/google/uuid"
)

// DefaultCategoryLabel holds a place added at bucket creation without a category
const DefaultCategoryLabel = "General"

// BucketService handles bucket, category and place business logic
type BucketService struct {
	bucketRepo repository.BucketRepository
	userRepo   repository.UserRepository
}

// NewBucketService creates a new bucket service
func NewBucketService(bucketRepo repository.BucketRepository, userRepo repository.UserRepository) *BucketService {
	return &BucketService{
		bucketRepo: bucketRepo,
		userRepo:   userRepo,
	}
}

// CreateBucketInput describes a new bucket
type CreateBucketInput struct {
	Title    string
	Notes    string
	Category string
}

// Create creates a bucket authored by userID, optionally seeded with a category and a place
func (s *BucketService) Create(ctx context.Context, userID string, input CreateBucketInput, place *models.Place) (*models.Bucket, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bucket := &models.Bucket{
		ID:        uuid.New().String(),
		AuthorID:  userID,
		Title:     strings.TrimSpace(input.Title),
		Notes:     input.Notes,
		CreatedAt: now,
		UpdatedAt: now,
		MemberIDs: []string{userID},
	}

	label := strings.TrimSpace(input.Category)
	if label == "" && place != nil {
		label = DefaultCategoryLabel
	}
	if label != "" {
		category := &models.Category{
			ID:        uuid.New().String(),
			Label:     label,
			CreatedAt: now,
		}
		if place != nil {
			place.ID = uuid.New().String()
			place.CreatedAt = now
			category.Places = []*models.Place{place}
		}
		bucket.Categories = []*models.Category{category}
	}

	if err := s.bucketRepo.Create(ctx, bucket); err != nil {
		return nil, err
	}

	return s.bucketRepo.GetByID(ctx, bucket.ID)
}

// Get returns a bucket with its tree
func (s *BucketService) Get(ctx context.Context, bucketID string) (*models.Bucket, error) {
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// ListForUser returns the buckets a user authored or joined
func (s *BucketService) ListForUser(ctx context.Context, userID string) ([]*models.Bucket, error) {
	return s.bucketRepo.ListByUser(ctx, userID)
}

// AddMember adds an existing user to an existing bucket. Adding a member again is a no-op.
func (s *BucketService) AddMember(ctx context.Context, bucketID, userID string) (*models.Bucket, error) {
	bucket, err := s.bucketRepo.GetByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if bucket.HasMember(userID) {
		return bucket, nil
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.AddMember(ctx, bucketID, userID); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// Rename changes the bucket title
func (s *BucketService) Rename(ctx context.Context, bucketID, title string) (*models.Bucket, error) {
	if err := s.bucketRepo.UpdateTitle(ctx, bucketID, strings.TrimSpace(title)); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// EditNotes replaces the bucket notes
func (s *BucketService) EditNotes(ctx context.Context, bucketID, notes string) (*models.Bucket, error) {
	if err := s.bucketRepo.UpdateNotes(ctx, bucketID, notes); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// Delete removes the bucket and returns it as it was before deletion
func (s *BucketService) Delete(ctx context.Context, bucketID string) (*models.Bucket, error) {
	bucket, err := s.bucketRepo.GetByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if err := s.bucketRepo.Delete(ctx, bucketID); err != nil {
		return nil, err
	}
	return bucket, nil
}

// AddCategory appends a category to a bucket
func (s *BucketService) AddCategory(ctx context.Context, bucketID, label string) (*models.Category, error) {
	if _, err := s.bucketRepo.GetByID(ctx, bucketID); err != nil {
		return nil, err
	}
	category := &models.Category{
		ID:        uuid.New().String(),
		BucketID:  bucketID,
		Label:     strings.TrimSpace(label),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.bucketRepo.AddCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// RenameCategory changes the label of a category that belongs to bucketID
func (s *BucketService) RenameCategory(ctx context.Context, bucketID, categoryID, label string) (*models.Category, error) {
	if _, err := s.categoryIn(ctx, bucketID, categoryID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.UpdateCategoryLabel(ctx, categoryID, strings.TrimSpace(label)); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetCategory(ctx, categoryID)
}

// DeleteCategory removes a category and returns the bucket after the deletion
func (s *BucketService) DeleteCategory(ctx context.Context, bucketID, categoryID string) (*models.Bucket, error) {
	if _, err := s.categoryIn(ctx, bucketID, categoryID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.DeleteCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// AddPlace appends a place to a category
func (s *BucketService) AddPlace(ctx context.Context, categoryID string, place *models.Place) (*models.Place, error) {
	if _, err := s.bucketRepo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	place.ID = uuid.New().String()
	place.CategoryID = categoryID
	place.CreatedAt = time.Now().UTC()
	if err := s.bucketRepo.AddPlace(ctx, place); err != nil {
		return nil, err
	}
	return place, nil
}

// RenamePlace changes the name of a place inside bucketID/categoryID
func (s *BucketService) RenamePlace(ctx context.Context, bucketID, categoryID, placeID, name string) (*models.Place, error) {
	if _, err := s.placeIn(ctx, bucketID, categoryID, placeID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.UpdatePlaceName(ctx, placeID, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetPlace(ctx, placeID)
}

// EditPlaceNotes replaces the notes of a place inside bucketID/categoryID
func (s *BucketService) EditPlaceNotes(ctx context.Context, bucketID, categoryID, placeID, notes string) (*models.Place, error) {
	if _, err := s.placeIn(ctx, bucketID, categoryID, placeID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.UpdatePlaceNotes(ctx, placeID, notes); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetPlace(ctx, placeID)
}

// DeletePlace removes a place and returns the bucket after the deletion
func (s *BucketService) DeletePlace(ctx context.Context, bucketID, categoryID, placeID string) (*models.Bucket, error) {
	if _, err := s.placeIn(ctx, bucketID, categoryID, placeID); err != nil {
		return nil, err
	}
	if err := s.bucketRepo.DeletePlace(ctx, placeID); err != nil {
		return nil, err
	}
	return s.bucketRepo.GetByID(ctx, bucketID)
}

// categoryIn loads a category and checks it sits in the given bucket
func (s *BucketService) categoryIn(ctx context.Context, bucketID, categoryID string) (*models.Category, error) {
	category, err := s.bucketRepo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.BucketID != bucketID {
		return nil, fmt.Errorf("category %s in bucket %s: %w", categoryID, bucketID, ErrNotFound)
	}
	return category, nil
}

// placeIn loads a place and checks the bucket/category/place containment
func (s *BucketService) placeIn(ctx context.Context, bucketID, categoryID, placeID string) (*models.Place, error) {
	if _, err := s.categoryIn(ctx, bucketID, categoryID); err != nil {
		return nil, err
	}
	place, err := s.bucketRepo.GetPlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place.CategoryID != categoryID {
		return nil, fmt.Errorf("place %s in category %s: %w", placeID, categoryID, ErrNotFound)
	}
	return place, nil
}
