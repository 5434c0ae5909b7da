// Package repotest runs the same behavioural checks against every
// repository.Store implementation.
package repotest

import (
	"context"
	"sort"
	"testing"
	"time"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises users, buckets and chats on store. The store must be empty.
func Run(t *testing.T, store repository.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, store) })
	t.Run("buckets", func(t *testing.T) { testBuckets(t, store) })
	t.Run("chats", func(t *testing.T) { testChats(t, store) })
}

func newUser(t *testing.T, store repository.Store, username string) *models.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func testUsers(t *testing.T, store repository.Store) {
	ctx := context.Background()
	users := store.Users()

	ada := newUser(t, store, "ada")
	bea := newUser(t, store, "bea")

	err := users.Create(ctx, &models.User{ID: uuid.New().String(), Username: "ada"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	err = users.Create(ctx, &models.User{ID: uuid.New().String(), Username: "ada2", Email: "ada@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// empty emails are not unique
	now := time.Now().UTC()
	for _, name := range []string{"anon1", "anon2"} {
		err := users.Create(ctx, &models.User{ID: uuid.New().String(), Username: name, CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
	}

	got, err := users.GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	got, err = users.GetByEmail(ctx, "bea@example.com")
	require.NoError(t, err)
	assert.Equal(t, bea.ID, got.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	exists, err := users.UsernameExists(ctx, "bea")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = users.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := users.GetByIDs(ctx, []string{bea.ID, "missing", ada.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, bea.ID, list[0].ID)
	assert.Equal(t, ada.ID, list[1].ID)

	vibe := "chill"
	require.NoError(t, users.UpdateInfo(ctx, ada.ID, models.UserInfo{Vibe: &vibe}))
	require.NoError(t, users.UpdateProfilePic(ctx, ada.ID, "https://cdn.example.com/ada.png"))
	token := "device-token"
	require.NoError(t, users.UpdatePushToken(ctx, ada.ID, &token))

	got, err = users.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "chill", got.Vibe)
	assert.Empty(t, got.Location)
	assert.Equal(t, "https://cdn.example.com/ada.png", got.ProfilePic)
	require.NotNil(t, got.PushToken)
	assert.Equal(t, token, *got.PushToken)

	assert.ErrorIs(t, users.UpdateProfilePic(ctx, "missing", "x"), repository.ErrNotFound)

	require.NoError(t, users.AddFriend(ctx, ada.ID, bea.ID))
	require.NoError(t, users.AddFriend(ctx, ada.ID, bea.ID))
	ids, err := users.ListFriendIDs(ctx, bea.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ada.ID}, ids)

	require.NoError(t, users.RemoveFriend(ctx, bea.ID, ada.ID))
	ids, err = users.ListFriendIDs(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testBuckets(t *testing.T, store repository.Store) {
	ctx := context.Background()
	buckets := store.Buckets()

	cat := newUser(t, store, "cat")
	dov := newUser(t, store, "dov")
	now := time.Now().UTC().Truncate(time.Millisecond)

	rating := 4.5
	bucket := &models.Bucket{
		ID:        uuid.New().String(),
		AuthorID:  cat.ID,
		Title:     "Lisbon",
		CreatedAt: now,
		UpdatedAt: now,
		MemberIDs: []string{cat.ID},
		Categories: []*models.Category{{
			ID:        uuid.New().String(),
			Label:     "Food",
			CreatedAt: now,
			Places: []*models.Place{{
				ID:          uuid.New().String(),
				Name:        "Time Out Market",
				Rating:      &rating,
				WeekdayText: []string{"Mon 10-24"},
				CreatedAt:   now,
			}},
		}},
	}
	require.NoError(t, buckets.Create(ctx, bucket))

	got, err := buckets.GetByID(ctx, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got.Title)
	assert.Equal(t, []string{cat.ID}, got.MemberIDs)
	require.Len(t, got.Categories, 1)
	require.Len(t, got.Categories[0].Places, 1)
	place := got.Categories[0].Places[0]
	assert.Equal(t, "Time Out Market", place.Name)
	assert.Equal(t, []string{"Mon 10-24"}, place.WeekdayText)
	require.NotNil(t, place.Rating)
	assert.InDelta(t, 4.5, *place.Rating, 0.001)

	require.NoError(t, buckets.AddMember(ctx, bucket.ID, dov.ID))
	require.NoError(t, buckets.AddMember(ctx, bucket.ID, dov.ID))
	listed, err := buckets.ListByUser(ctx, dov.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.ElementsMatch(t, []string{cat.ID, dov.ID}, listed[0].MemberIDs)

	require.NoError(t, buckets.UpdateTitle(ctx, bucket.ID, "Porto"))
	require.NoError(t, buckets.UpdateNotes(ctx, bucket.ID, "trains"))
	assert.ErrorIs(t, buckets.UpdateTitle(ctx, "missing", "x"), repository.ErrNotFound)

	second := &models.Category{ID: uuid.New().String(), BucketID: bucket.ID, Label: "Sights", CreatedAt: now}
	require.NoError(t, buckets.AddCategory(ctx, second))
	require.NoError(t, buckets.UpdateCategoryLabel(ctx, second.ID, "Views"))

	added := &models.Place{ID: uuid.New().String(), CategoryID: second.ID, Name: "Miradouro", CreatedAt: now}
	require.NoError(t, buckets.AddPlace(ctx, added))
	require.NoError(t, buckets.UpdatePlaceName(ctx, added.ID, "Miradouro da Graca"))
	require.NoError(t, buckets.UpdatePlaceNotes(ctx, added.ID, "sunset"))

	category, err := buckets.GetCategory(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Views", category.Label)
	assert.Equal(t, bucket.ID, category.BucketID)
	require.Len(t, category.Places, 1)
	assert.Equal(t, "sunset", category.Places[0].Notes)

	got, err = buckets.GetByID(ctx, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Porto", got.Title)
	assert.Equal(t, "trains", got.Notes)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "Food", got.Categories[0].Label)
	assert.Equal(t, "Views", got.Categories[1].Label)

	require.NoError(t, buckets.DeletePlace(ctx, added.ID))
	_, err = buckets.GetPlace(ctx, added.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, buckets.DeleteCategory(ctx, second.ID))
	assert.ErrorIs(t, buckets.DeleteCategory(ctx, second.ID), repository.ErrNotFound)

	require.NoError(t, buckets.Delete(ctx, bucket.ID))
	_, err = buckets.GetByID(ctx, bucket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = buckets.GetPlace(ctx, place.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	listed, err = buckets.ListByUser(ctx, dov.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func testChats(t *testing.T, store repository.Store) {
	ctx := context.Background()
	chats := store.Chats()

	eli := newUser(t, store, "eli")
	fin := newUser(t, store, "fin")
	gus := newUser(t, store, "gus")
	now := time.Now().UTC().Truncate(time.Millisecond)

	// members come back in insertion order, not sorted by id
	memberIDs := []string{eli.ID, fin.ID, gus.ID}
	sort.Sort(sort.Reverse(sort.StringSlice(memberIDs)))

	chat := &models.Chat{
		ID:        uuid.New().String(),
		Name:      "weekend",
		AdminID:   eli.ID,
		MemberIDs: memberIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, chats.Create(ctx, chat))

	got, err := chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "weekend", got.Name)
	assert.Equal(t, memberIDs, got.MemberIDs)

	for i, content := range []string{"first", "second"} {
		msg := &models.Message{
			ID:          uuid.New().String(),
			ChatID:      chat.ID,
			Description: "d",
			AuthorID:    eli.ID,
			Content:     content,
			Timeslots:   []string{"sat"},
			CreatedAt:   now.Add(time.Duration(i+1) * time.Second),
			UpdatedAt:   now.Add(time.Duration(i+1) * time.Second),
		}
		require.NoError(t, chats.AddMessage(ctx, msg))
	}

	err = chats.AddMessage(ctx, &models.Message{ID: uuid.New().String(), ChatID: "missing", CreatedAt: now})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	messages, err := chats.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, []string{"sat"}, messages[1].Timeslots)

	listed, err := chats.ListByUser(ctx, fin.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].UpdatedAt.After(now))
	assert.Equal(t, memberIDs, listed[0].MemberIDs)

	_, err = chats.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
