package postgres

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const placeColumns = `id, category_id, position, latitude, longitude, name, rating,
	user_ratings_total, weekday_text, open_now, description, formatted_address,
	international_phone_number, img_arr, url, review, notes, created_at`

// BucketRepository handles database operations for buckets, categories and places
type BucketRepository struct {
	db *pgxpool.Pool
}

// NewBucketRepository creates a new bucket repository
func NewBucketRepository(db *pgxpool.Pool) *BucketRepository {
	return &BucketRepository{db: db}
}

// Create inserts the bucket with its members, categories and places in one transaction
func (r *BucketRepository) Create(ctx context.Context, bucket *models.Bucket) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO buckets (id, author_id, title, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, bucket.ID, bucket.AuthorID, bucket.Title, bucket.Notes, bucket.CreatedAt, bucket.UpdatedAt)
		if err != nil {
			return err
		}

		for _, memberID := range bucket.MemberIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO bucket_members (bucket_id, user_id, added_at)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, bucket.ID, memberID, bucket.CreatedAt)
			if err != nil {
				return err
			}
		}

		for _, category := range bucket.Categories {
			category.BucketID = bucket.ID
			if err := insertCategory(ctx, tx, category); err != nil {
				return err
			}
			for _, place := range category.Places {
				place.CategoryID = category.ID
				if err := insertPlace(ctx, tx, place); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// GetByID retrieves a bucket with members and its category/place tree
func (r *BucketRepository) GetByID(ctx context.Context, id string) (*models.Bucket, error) {
	query := `
		SELECT id, author_id, title, notes, created_at, updated_at
		FROM buckets
		WHERE id = $1
	`
	var bucket models.Bucket
	err := r.db.QueryRow(ctx, query, id).Scan(
		&bucket.ID, &bucket.AuthorID, &bucket.Title, &bucket.Notes,
		&bucket.CreatedAt, &bucket.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "bucket", id)
	}

	buckets := []*models.Bucket{&bucket}
	if err := r.loadTree(ctx, buckets); err != nil {
		return nil, err
	}
	return &bucket, nil
}

// ListByUser retrieves buckets the user authored or joined, newest first
func (r *BucketRepository) ListByUser(ctx context.Context, userID string) ([]*models.Bucket, error) {
	query := `
		SELECT b.id, b.author_id, b.title, b.notes, b.created_at, b.updated_at
		FROM buckets b
		WHERE b.author_id = $1
		   OR EXISTS (SELECT 1 FROM bucket_members m WHERE m.bucket_id = b.id AND m.user_id = $1)
		ORDER BY b.created_at DESC, b.id
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*models.Bucket
	for rows.Next() {
		var bucket models.Bucket
		err := rows.Scan(
			&bucket.ID, &bucket.AuthorID, &bucket.Title, &bucket.Notes,
			&bucket.CreatedAt, &bucket.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, &bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}

	if err := r.loadTree(ctx, buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// loadTree fills MemberIDs and Categories (with Places) for the given buckets
func (r *BucketRepository) loadTree(ctx context.Context, buckets []*models.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	ids := make([]string, len(buckets))
	byID := make(map[string]*models.Bucket, len(buckets))
	for i, b := range buckets {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := r.db.Query(ctx, `
		SELECT bucket_id, user_id
		FROM bucket_members
		WHERE bucket_id = ANY($1)
		ORDER BY added_at, user_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get bucket members: %w", err)
	}
	for rows.Next() {
		var bucketID, userID string
		if err := rows.Scan(&bucketID, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan bucket member: %w", err)
		}
		byID[bucketID].MemberIDs = append(byID[bucketID].MemberIDs, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating bucket members: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, bucket_id, label, position, created_at
		FROM categories
		WHERE bucket_id = ANY($1)
		ORDER BY position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get categories: %w", err)
	}
	categories := make(map[string]*models.Category)
	var categoryIDs []string
	for rows.Next() {
		var category models.Category
		err := rows.Scan(&category.ID, &category.BucketID, &category.Label, &category.Position, &category.CreatedAt)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan category: %w", err)
		}
		bucket := byID[category.BucketID]
		bucket.Categories = append(bucket.Categories, &category)
		categories[category.ID] = &category
		categoryIDs = append(categoryIDs, category.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating categories: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}

	rows, err = r.db.Query(ctx, `
		SELECT `+placeColumns+`
		FROM places
		WHERE category_id = ANY($1)
		ORDER BY position
	`, categoryIDs)
	if err != nil {
		return fmt.Errorf("failed to get places: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return fmt.Errorf("failed to scan place: %w", err)
		}
		category := categories[place.CategoryID]
		category.Places = append(category.Places, place)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating places: %w", err)
	}
	return nil
}

// AddMember adds a user to the bucket members; adding twice is a no-op
func (r *BucketRepository) AddMember(ctx context.Context, bucketID, userID string) error {
	query := `
		INSERT INTO bucket_members (bucket_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, bucketID, userID); err != nil {
		return fmt.Errorf("failed to add bucket member: %w", err)
	}
	return nil
}

// UpdateTitle updates the bucket title
func (r *BucketRepository) UpdateTitle(ctx context.Context, id, title string) error {
	return r.updateBucketColumn(ctx, id, "title", title)
}

// UpdateNotes updates the bucket notes
func (r *BucketRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	return r.updateBucketColumn(ctx, id, "notes", notes)
}

func (r *BucketRepository) updateBucketColumn(ctx context.Context, id, column, value string) error {
	query := `UPDATE buckets SET ` + column + ` = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update bucket %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bucket %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// Delete deletes a bucket; members, categories and places cascade
func (r *BucketRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bucket %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertCategory(ctx context.Context, q querier, category *models.Category) error {
	query := `
		INSERT INTO categories (id, bucket_id, label, position, created_at)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM categories WHERE bucket_id = $2), $4)
		RETURNING position
	`
	return q.QueryRow(ctx, query,
		category.ID, category.BucketID, category.Label, category.CreatedAt,
	).Scan(&category.Position)
}

func insertPlace(ctx context.Context, q querier, place *models.Place) error {
	query := `
		INSERT INTO places (` + placeColumns + `)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM places WHERE category_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING position
	`
	return q.QueryRow(ctx, query,
		place.ID, place.CategoryID, place.Latitude, place.Longitude, place.Name,
		place.Rating, place.UserRatingsTotal, nonNil(place.WeekdayText), place.OpenNow,
		place.Description, place.FormattedAddress, place.InternationalPhoneNumber,
		nonNil(place.ImgArr), place.URL, place.Review, place.Notes, place.CreatedAt,
	).Scan(&place.Position)
}

func scanPlace(row pgx.Row) (*models.Place, error) {
	var place models.Place
	err := row.Scan(
		&place.ID, &place.CategoryID, &place.Position, &place.Latitude, &place.Longitude,
		&place.Name, &place.Rating, &place.UserRatingsTotal, &place.WeekdayText,
		&place.OpenNow, &place.Description, &place.FormattedAddress,
		&place.InternationalPhoneNumber, &place.ImgArr, &place.URL, &place.Review,
		&place.Notes, &place.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// AddCategory appends a category to its bucket
func (r *BucketRepository) AddCategory(ctx context.Context, category *models.Category) error {
	if err := insertCategory(ctx, r.db, category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category with its places
func (r *BucketRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	query := `
		SELECT id, bucket_id, label, position, created_at
		FROM categories
		WHERE id = $1
	`
	var category models.Category
	err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID, &category.BucketID, &category.Label, &category.Position, &category.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "category", id)
	}

	rows, err := r.db.Query(ctx, `SELECT `+placeColumns+` FROM places WHERE category_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get places: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		category.Places = append(category.Places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating places: %w", err)
	}
	return &category, nil
}

// UpdateCategoryLabel renames a category
func (r *BucketRepository) UpdateCategoryLabel(ctx context.Context, id, label string) error {
	result, err := r.db.Exec(ctx, `UPDATE categories SET label = $1 WHERE id = $2`, label, id)
	if err != nil {
		return fmt.Errorf("failed to update category label: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DeleteCategory deletes a category; its places cascade
func (r *BucketRepository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// AddPlace appends a place to its category
func (r *BucketRepository) AddPlace(ctx context.Context, place *models.Place) error {
	if err := insertPlace(ctx, r.db, place); err != nil {
		return fmt.Errorf("failed to create place: %w", err)
	}
	return nil
}

// GetPlace retrieves a place by ID
func (r *BucketRepository) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	place, err := scanPlace(r.db.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "place", id)
	}
	return place, nil
}

// UpdatePlaceName renames a place
func (r *BucketRepository) UpdatePlaceName(ctx context.Context, id, name string) error {
	return r.updatePlaceColumn(ctx, id, "name", name)
}

// UpdatePlaceNotes updates the notes of a place
func (r *BucketRepository) UpdatePlaceNotes(ctx context.Context, id, notes string) error {
	return r.updatePlaceColumn(ctx, id, "notes", notes)
}

func (r *BucketRepository) updatePlaceColumn(ctx context.Context, id, column, value string) error {
	result, err := r.db.Exec(ctx, `UPDATE places SET `+column+` = $1 WHERE id = $2`, value, id)
	if err != nil {
		return fmt.Errorf("failed to update place %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("place %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DeletePlace deletes a place
func (r *BucketRepository) DeletePlace(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("place %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
