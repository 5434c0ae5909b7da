package sqlite

import (
	"context"
	"fmt"
	"time"

	"bucket-list-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BucketRepository manages buckets and their category/place tree.
type BucketRepository struct {
	db *gorm.DB
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (r *BucketRepository) Create(ctx context.Context, bucket *models.Bucket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(bucket).Error; err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, memberID := range bucket.MemberIDs {
			member := bucketMember{BucketID: bucket.ID, UserID: memberID, AddedAt: bucket.CreatedAt}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
				return fmt.Errorf("add bucket member: %w", err)
			}
		}
		for _, category := range bucket.Categories {
			category.BucketID = bucket.ID
			if err := insertCategory(tx, category); err != nil {
				return err
			}
			for _, place := range category.Places {
				place.CategoryID = category.ID
				if err := insertPlace(tx, place); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *BucketRepository) GetByID(ctx context.Context, id string) (*models.Bucket, error) {
	var bucket models.Bucket
	err := r.db.WithContext(ctx).
		Preload("Categories", byPosition).
		Preload("Categories.Places", byPosition).
		First(&bucket, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "bucket", id)
	}
	if err := r.loadMembers(ctx, []*models.Bucket{&bucket}); err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (r *BucketRepository) ListByUser(ctx context.Context, userID string) ([]*models.Bucket, error) {
	db := r.db.WithContext(ctx)
	joined := db.Model(&bucketMember{}).Select("bucket_id").Where("user_id = ?", userID)

	var buckets []*models.Bucket
	err := db.
		Preload("Categories", byPosition).
		Preload("Categories.Places", byPosition).
		Where("author_id = ? OR id IN (?)", userID, joined).
		Order("created_at DESC, id").
		Find(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	if err := r.loadMembers(ctx, buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (r *BucketRepository) loadMembers(ctx context.Context, buckets []*models.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	ids := make([]string, len(buckets))
	byID := make(map[string]*models.Bucket, len(buckets))
	for i, b := range buckets {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	var members []bucketMember
	err := r.db.WithContext(ctx).
		Where("bucket_id IN ?", ids).
		Order("added_at, user_id").
		Find(&members).Error
	if err != nil {
		return fmt.Errorf("list bucket members: %w", err)
	}
	for _, m := range members {
		byID[m.BucketID].MemberIDs = append(byID[m.BucketID].MemberIDs, m.UserID)
	}
	return nil
}

func (r *BucketRepository) AddMember(ctx context.Context, bucketID, userID string) error {
	member := bucketMember{BucketID: bucketID, UserID: userID, AddedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		return fmt.Errorf("add bucket member: %w", err)
	}
	return nil
}

func (r *BucketRepository) UpdateTitle(ctx context.Context, id, title string) error {
	return r.updateBucket(ctx, id, "title", title)
}

func (r *BucketRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	return r.updateBucket(ctx, id, "notes", notes)
}

func (r *BucketRepository) updateBucket(ctx context.Context, id, column, value string) error {
	result := r.db.WithContext(ctx).Model(&models.Bucket{}).Where("id = ?", id).Updates(map[string]interface{}{
		column:       value,
		"updated_at": time.Now().UTC(),
	})
	return affected(result, "bucket", id)
}

// Delete removes the bucket, its members, categories and places.
func (r *BucketRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := tx.Model(&models.Category{}).Select("id").Where("bucket_id = ?", id)
		if err := tx.Where("category_id IN (?)", categories).Delete(&models.Place{}).Error; err != nil {
			return fmt.Errorf("delete places: %w", err)
		}
		if err := tx.Where("bucket_id = ?", id).Delete(&models.Category{}).Error; err != nil {
			return fmt.Errorf("delete categories: %w", err)
		}
		if err := tx.Where("bucket_id = ?", id).Delete(&bucketMember{}).Error; err != nil {
			return fmt.Errorf("delete bucket members: %w", err)
		}
		return affected(tx.Where("id = ?", id).Delete(&models.Bucket{}), "bucket", id)
	})
}

func insertCategory(tx *gorm.DB, category *models.Category) error {
	var last int
	err := tx.Model(&models.Category{}).
		Where("bucket_id = ?", category.BucketID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&last).Error
	if err != nil {
		return fmt.Errorf("next category position: %w", err)
	}
	category.Position = last + 1
	if err := tx.Omit(clause.Associations).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func insertPlace(tx *gorm.DB, place *models.Place) error {
	var last int
	err := tx.Model(&models.Place{}).
		Where("category_id = ?", place.CategoryID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&last).Error
	if err != nil {
		return fmt.Errorf("next place position: %w", err)
	}
	place.Position = last + 1
	if err := tx.Create(place).Error; err != nil {
		return fmt.Errorf("create place: %w", err)
	}
	return nil
}

func (r *BucketRepository) AddCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertCategory(tx, category)
	})
}

func (r *BucketRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Preload("Places", byPosition).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "category", id)
	}
	return &category, nil
}

func (r *BucketRepository) UpdateCategoryLabel(ctx context.Context, id, label string) error {
	result := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("label", label)
	return affected(result, "category", id)
}

func (r *BucketRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&models.Place{}).Error; err != nil {
			return fmt.Errorf("delete places: %w", err)
		}
		return affected(tx.Where("id = ?", id).Delete(&models.Category{}), "category", id)
	})
}

func (r *BucketRepository) AddPlace(ctx context.Context, place *models.Place) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertPlace(tx, place)
	})
}

func (r *BucketRepository) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	if err := r.db.WithContext(ctx).First(&place, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "place", id)
	}
	return &place, nil
}

func (r *BucketRepository) UpdatePlaceName(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).Model(&models.Place{}).Where("id = ?", id).Update("name", name)
	return affected(result, "place", id)
}

func (r *BucketRepository) UpdatePlaceNotes(ctx context.Context, id, notes string) error {
	result := r.db.WithContext(ctx).Model(&models.Place{}).Where("id = ?", id).Update("notes", notes)
	return affected(result, "place", id)
}

func (r *BucketRepository) DeletePlace(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Place{}), "place", id)
}
