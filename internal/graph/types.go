package graph

import (
	"context"
	"errors"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/services"

	"github.com/graph-gophers/graphql-go"
)

// UserResolver resolves the User type
type UserResolver struct {
	r    *Resolver
	user *models.User
}

func (u *UserResolver) ID() *graphql.ID { return optID(u.user.ID) }
func (u *UserResolver) FirstName() *string { return optString(u.user.FirstName) }
func (u *UserResolver) LastName() *string { return optString(u.user.LastName) }
func (u *UserResolver) Username() *string { return optString(u.user.Username) }
func (u *UserResolver) Email() *string { return optString(u.user.Email) }
func (u *UserResolver) Birthday() *string { return optString(u.user.Birthday) }
func (u *UserResolver) Location() *string { return optString(u.user.Location) }
func (u *UserResolver) Vibe() *string { return optString(u.user.Vibe) }
func (u *UserResolver) Emojis() *string { return optString(u.user.Emojis) }
func (u *UserResolver) ProfilePic() *string { return optString(u.user.ProfilePic) }
func (u *UserResolver) CreatedAt() *Date { return optDate(u.user.CreatedAt) }
func (u *UserResolver) UpdatedAt() *Date { return optDate(u.user.UpdatedAt) }

// Password is never exposed; only a hash is stored
func (u *UserResolver) Password() *string { return nil }

func (u *UserResolver) Friends(ctx context.Context) (*[]*UserResolver, error) {
	friends, err := u.r.users.Friends(ctx, u.user.ID)
	if err != nil {
		return nil, toError(err)
	}
	return u.r.userList(friends), nil
}

// BucketResolver resolves the Bucket type
type BucketResolver struct {
	r      *Resolver
	bucket *models.Bucket
}

func (b *BucketResolver) ID() graphql.ID { return graphql.ID(b.bucket.ID) }
func (b *BucketResolver) Title() *string { return optString(b.bucket.Title) }
func (b *BucketResolver) Notes() *string { return optString(b.bucket.Notes) }

func (b *BucketResolver) DateCreated() *string {
	if b.bucket.CreatedAt.IsZero() {
		return nil
	}
	s := formatTime(b.bucket.CreatedAt)
	return &s
}

func (b *BucketResolver) Author(ctx context.Context) (*UserResolver, error) {
	return b.r.userByID(ctx, b.bucket.AuthorID)
}

func (b *BucketResolver) Members(ctx context.Context) (*[]*UserResolver, error) {
	users, err := b.r.users.GetByIDs(ctx, b.bucket.MemberIDs)
	if err != nil {
		return nil, toError(err)
	}
	return b.r.userList(users), nil
}

func (b *BucketResolver) Categories() *[]*CategoryResolver {
	out := make([]*CategoryResolver, len(b.bucket.Categories))
	for i, c := range b.bucket.Categories {
		out[i] = &CategoryResolver{category: c}
	}
	return &out
}

// CategoryResolver resolves the Category type
type CategoryResolver struct {
	category *models.Category
}

func (c *CategoryResolver) ID() *graphql.ID { return optID(c.category.ID) }
func (c *CategoryResolver) Label() *string { return optString(c.category.Label) }

func (c *CategoryResolver) Places() *[]*PlaceResolver {
	out := make([]*PlaceResolver, len(c.category.Places))
	for i, p := range c.category.Places {
		out[i] = &PlaceResolver{place: p}
	}
	return &out
}

// PlaceResolver resolves the Place type
type PlaceResolver struct {
	place *models.Place
}

func (p *PlaceResolver) ID() *graphql.ID { return optID(p.place.ID) }
func (p *PlaceResolver) Latitude() *float64 { return p.place.Latitude }
func (p *PlaceResolver) Longitude() *float64 { return p.place.Longitude }
func (p *PlaceResolver) Name() *string { return optString(p.place.Name) }
func (p *PlaceResolver) Rating() *float64 { return p.place.Rating }
func (p *PlaceResolver) WeekdayText() *[]*string { return optStrings(p.place.WeekdayText) }
func (p *PlaceResolver) OpenNow() *bool { return p.place.OpenNow }
func (p *PlaceResolver) Description() *string { return optString(p.place.Description) }
func (p *PlaceResolver) FormattedAddress() *string { return optString(p.place.FormattedAddress) }
func (p *PlaceResolver) InternationalPhoneNumber() *string { return optString(p.place.InternationalPhoneNumber) }
func (p *PlaceResolver) ImgArr() *[]*string { return optStrings(p.place.ImgArr) }
func (p *PlaceResolver) URL() *string { return optString(p.place.URL) }
func (p *PlaceResolver) Review() *string { return optString(p.place.Review) }
func (p *PlaceResolver) Notes() *string { return optString(p.place.Notes) }

func (p *PlaceResolver) UserRatingsTotal() *int32 {
	if p.place.UserRatingsTotal == nil {
		return nil
	}
	n := int32(*p.place.UserRatingsTotal)
	return &n
}

// ChatResolver resolves the Chat type
type ChatResolver struct {
	r    *Resolver
	chat *models.Chat
}

func (c *ChatResolver) ID() *graphql.ID { return optID(c.chat.ID) }
func (c *ChatResolver) Name() *string { return optString(c.chat.Name) }
func (c *ChatResolver) Admin() *graphql.ID { return optID(c.chat.AdminID) }
func (c *ChatResolver) CreatedAt() *Date { return optDate(c.chat.CreatedAt) }
func (c *ChatResolver) UpdatedAt() *Date { return optDate(c.chat.UpdatedAt) }

func (c *ChatResolver) Members(ctx context.Context) (*[]*UserResolver, error) {
	users, err := c.r.users.GetByIDs(ctx, c.chat.MemberIDs)
	if err != nil {
		return nil, toError(err)
	}
	return c.r.userList(users), nil
}

func (c *ChatResolver) Messages(ctx context.Context) (*[]*MessageResolver, error) {
	messages, err := c.r.chats.Messages(ctx, c.chat.ID)
	if err != nil {
		return nil, toError(err)
	}
	out := make([]*MessageResolver, len(messages))
	for i, m := range messages {
		out[i] = &MessageResolver{message: m}
	}
	return &out, nil
}

// MessageResolver resolves the Message type
type MessageResolver struct {
	message *models.Message
}

func (m *MessageResolver) ID() *graphql.ID { return optID(m.message.ID) }
func (m *MessageResolver) ChatID() *graphql.ID { return optID(m.message.ChatID) }
func (m *MessageResolver) Description() *string { return optString(m.message.Description) }
func (m *MessageResolver) Author() *graphql.ID { return optID(m.message.AuthorID) }
func (m *MessageResolver) Content() *string { return optString(m.message.Content) }
func (m *MessageResolver) Timeslots() *[]*string { return optStrings(m.message.Timeslots) }
func (m *MessageResolver) Photo() *string { return optString(m.message.Photo) }
func (m *MessageResolver) CreatedAt() *Date { return optDate(m.message.CreatedAt) }
func (m *MessageResolver) UpdatedAt() *Date { return optDate(m.message.UpdatedAt) }

func (r *Resolver) userByID(ctx context.Context, id string) (*UserResolver, error) {
	user, err := r.users.GetByID(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

func (r *Resolver) userList(users []*models.User) *[]*UserResolver {
	out := make([]*UserResolver, len(users))
	for i, u := range users {
		out[i] = &UserResolver{r: r, user: u}
	}
	return &out
}

func (r *Resolver) bucket(b *models.Bucket) *BucketResolver {
	return &BucketResolver{r: r, bucket: b}
}

func (r *Resolver) chat(c *models.Chat) *ChatResolver {
	return &ChatResolver{r: r, chat: c}
}
