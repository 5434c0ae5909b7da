// Package graph executes GraphQL operations against the service layer.
package graph

import (
	"context"
	"errors"

	"bucket-list-backend/internal/models"
	"bucket-list-backend/internal/services"

	"github.com/graph-gophers/graphql-go"
)

// Resolver is the root resolver for queries, mutations and subscriptions
type Resolver struct {
	users   *services.UserService
	buckets *services.BucketService
	chats   *services.ChatService
}

// NewResolver creates the root resolver
func NewResolver(users *services.UserService, buckets *services.BucketService, chats *services.ChatService) *Resolver {
	return &Resolver{
		users:   users,
		buckets: buckets,
		chats:   chats,
	}
}

// Queries

func (r *Resolver) GetBuckets(ctx context.Context, args struct{ UserID graphql.ID }) (*[]*BucketResolver, error) {
	buckets, err := r.buckets.ListForUser(ctx, string(args.UserID))
	if err != nil {
		return nil, toError(err)
	}
	out := make([]*BucketResolver, len(buckets))
	for i, b := range buckets {
		out[i] = r.bucket(b)
	}
	return &out, nil
}

func (r *Resolver) GetBucketByID(ctx context.Context, args struct{ BucketID graphql.ID }) (*BucketResolver, error) {
	bucket, err := r.buckets.Get(ctx, string(args.BucketID))
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) GetChats(ctx context.Context, args struct{ UserID graphql.ID }) (*[]*ChatResolver, error) {
	chats, err := r.chats.ListForUser(ctx, string(args.UserID))
	if err != nil {
		return nil, toError(err)
	}
	out := make([]*ChatResolver, len(chats))
	for i, c := range chats {
		out[i] = r.chat(c)
	}
	return &out, nil
}

func (r *Resolver) GetChatByID(ctx context.Context, args struct{ ChatID graphql.ID }) (*ChatResolver, error) {
	chat, err := r.chats.Get(ctx, string(args.ChatID))
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toError(err)
	}
	return r.chat(chat), nil
}

func (r *Resolver) GetUserByID(ctx context.Context, args struct{ UserID graphql.ID }) (*UserResolver, error) {
	return r.userByID(ctx, string(args.UserID))
}

func (r *Resolver) GetUserByUsername(ctx context.Context, args struct{ Username *string }) (*UserResolver, error) {
	user, err := r.users.GetByUsername(ctx, deref(args.Username))
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

// Input objects

type bucketInput struct {
	Title    *string
	Notes    *string
	Category *string
}

type placeInput struct {
	Latitude                 *float64
	Longitude                *float64
	Name                     *string
	Rating                   *float64
	UserRatingsTotal         *int32
	WeekdayText              *[]*string
	OpenNow                  *bool
	Description              *string
	FormattedAddress         *string
	InternationalPhoneNumber *string
	ImgArr                   *[]*string
	URL                      *string
	Review                   *string
	Notes                    *string
}

func (in *placeInput) model() *models.Place {
	if in == nil {
		return nil
	}
	place := &models.Place{
		Latitude:                 in.Latitude,
		Longitude:                in.Longitude,
		Name:                     deref(in.Name),
		Rating:                   in.Rating,
		WeekdayText:              derefStrings(in.WeekdayText),
		OpenNow:                  in.OpenNow,
		Description:              deref(in.Description),
		FormattedAddress:         deref(in.FormattedAddress),
		InternationalPhoneNumber: deref(in.InternationalPhoneNumber),
		ImgArr:                   derefStrings(in.ImgArr),
		URL:                      deref(in.URL),
		Review:                   deref(in.Review),
		Notes:                    deref(in.Notes),
	}
	if in.UserRatingsTotal != nil {
		n := int(*in.UserRatingsTotal)
		place.UserRatingsTotal = &n
	}
	return place
}

type userInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Password  *string
	Birthday  *string
}

type chatInput struct {
	Name    *string
	Admin   *graphql.ID
	Members *[]*graphql.ID
}

type messageInput struct {
	Description string
	Author      graphql.ID
	Content     *string
	Timeslots   *[]*string
	Photo       *string
}

// Mutations

func (r *Resolver) CreateBucket(ctx context.Context, args struct {
	Input  bucketInput
	Place  *placeInput
	UserID graphql.ID
}) (*BucketResolver, error) {
	bucket, err := r.buckets.Create(ctx, string(args.UserID), services.CreateBucketInput{
		Title:    deref(args.Input.Title),
		Notes:    deref(args.Input.Notes),
		Category: deref(args.Input.Category),
	}, args.Place.model())
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) AddUserToBucket(ctx context.Context, args struct {
	BucketID graphql.ID
	UserID   graphql.ID
}) (*BucketResolver, error) {
	bucket, err := r.buckets.AddMember(ctx, string(args.BucketID), string(args.UserID))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) AddCategory(ctx context.Context, args struct {
	BucketID graphql.ID
	Label    *string
}) (*CategoryResolver, error) {
	category, err := r.buckets.AddCategory(ctx, string(args.BucketID), deref(args.Label))
	if err != nil {
		return nil, toError(err)
	}
	return &CategoryResolver{category: category}, nil
}

func (r *Resolver) AddPlace(ctx context.Context, args struct {
	CatID graphql.ID
	Input placeInput
}) (*PlaceResolver, error) {
	place, err := r.buckets.AddPlace(ctx, string(args.CatID), args.Input.model())
	if err != nil {
		return nil, toError(err)
	}
	return &PlaceResolver{place: place}, nil
}

func (r *Resolver) ChangeBucketName(ctx context.Context, args struct {
	BucketID graphql.ID
	Title    *string
}) (*BucketResolver, error) {
	bucket, err := r.buckets.Rename(ctx, string(args.BucketID), deref(args.Title))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) ChangeCatName(ctx context.Context, args struct {
	BucketID graphql.ID
	CatID    graphql.ID
	Label    *string
}) (*CategoryResolver, error) {
	category, err := r.buckets.RenameCategory(ctx, string(args.BucketID), string(args.CatID), deref(args.Label))
	if err != nil {
		return nil, toError(err)
	}
	return &CategoryResolver{category: category}, nil
}

func (r *Resolver) ChangePlaceName(ctx context.Context, args struct {
	BucketID graphql.ID
	CatID    graphql.ID
	PlaceID  graphql.ID
	Name     *string
}) (*PlaceResolver, error) {
	place, err := r.buckets.RenamePlace(ctx, string(args.BucketID), string(args.CatID), string(args.PlaceID), deref(args.Name))
	if err != nil {
		return nil, toError(err)
	}
	return &PlaceResolver{place: place}, nil
}

func (r *Resolver) EditBucketNotes(ctx context.Context, args struct {
	BucketID graphql.ID
	NewNote  *string
}) (*BucketResolver, error) {
	bucket, err := r.buckets.EditNotes(ctx, string(args.BucketID), deref(args.NewNote))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) EditPlaceNotes(ctx context.Context, args struct {
	BucketID graphql.ID
	CatID    graphql.ID
	PlaceID  graphql.ID
	NewNote  *string
}) (*PlaceResolver, error) {
	place, err := r.buckets.EditPlaceNotes(ctx, string(args.BucketID), string(args.CatID), string(args.PlaceID), deref(args.NewNote))
	if err != nil {
		return nil, toError(err)
	}
	return &PlaceResolver{place: place}, nil
}

func (r *Resolver) DeleteBucket(ctx context.Context, args struct{ BucketID graphql.ID }) (*BucketResolver, error) {
	bucket, err := r.buckets.Delete(ctx, string(args.BucketID))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) DeleteCategory(ctx context.Context, args struct {
	BucketID graphql.ID
	CatID    graphql.ID
}) (*BucketResolver, error) {
	bucket, err := r.buckets.DeleteCategory(ctx, string(args.BucketID), string(args.CatID))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) DeletePlace(ctx context.Context, args struct {
	BucketID graphql.ID
	CatID    graphql.ID
	PlaceID  graphql.ID
}) (*BucketResolver, error) {
	bucket, err := r.buckets.DeletePlace(ctx, string(args.BucketID), string(args.CatID), string(args.PlaceID))
	if err != nil {
		return nil, toError(err)
	}
	return r.bucket(bucket), nil
}

func (r *Resolver) RegisterUser(ctx context.Context, args struct{ Input userInput }) (*UserResolver, error) {
	user, err := r.users.Register(ctx, services.RegisterInput{
		FirstName: deref(args.Input.FirstName),
		LastName:  deref(args.Input.LastName),
		Username:  deref(args.Input.Username),
		Email:     deref(args.Input.Email),
		Password:  deref(args.Input.Password),
		Birthday:  deref(args.Input.Birthday),
	})
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

// LoginUser reads only the credential fields of the input
func (r *Resolver) LoginUser(ctx context.Context, args struct{ Input userInput }) (*UserResolver, error) {
	user, err := r.users.Login(ctx, services.Credentials{
		Username: deref(args.Input.Username),
		Email:    deref(args.Input.Email),
		Password: deref(args.Input.Password),
	})
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

func (r *Resolver) AddInfoToUser(ctx context.Context, args struct {
	UserID   graphql.ID
	Location *string
	Vibe     *string
	Emojis   *string
}) (*UserResolver, error) {
	user, err := r.users.AddInfo(ctx, string(args.UserID), models.UserInfo{
		Location: args.Location,
		Vibe:     args.Vibe,
		Emojis:   args.Emojis,
	})
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

func (r *Resolver) AddProfilePicToUser(ctx context.Context, args struct {
	UserID     graphql.ID
	ProfilePic *string
}) (*UserResolver, error) {
	user, err := r.users.SetProfilePic(ctx, string(args.UserID), deref(args.ProfilePic))
	if err != nil {
		return nil, toError(err)
	}
	return &UserResolver{r: r, user: user}, nil
}

func (r *Resolver) AddFriendToUser(ctx context.Context, args struct {
	UserID   graphql.ID
	FriendID graphql.ID
}) (*[]*UserResolver, error) {
	friends, err := r.users.AddFriend(ctx, string(args.UserID), string(args.FriendID))
	if err != nil {
		return nil, toError(err)
	}
	return r.userList(friends), nil
}

func (r *Resolver) RemoveFriendFromUser(ctx context.Context, args struct {
	UserID   graphql.ID
	FriendID graphql.ID
}) (*[]*UserResolver, error) {
	friends, err := r.users.RemoveFriend(ctx, string(args.UserID), string(args.FriendID))
	if err != nil {
		return nil, toError(err)
	}
	return r.userList(friends), nil
}

func (r *Resolver) CreateChat(ctx context.Context, args struct{ Input *chatInput }) (*ChatResolver, error) {
	if args.Input == nil {
		return nil, badInput("input is required")
	}
	var adminID string
	if args.Input.Admin != nil {
		adminID = string(*args.Input.Admin)
	}
	chat, err := r.chats.Create(ctx, services.CreateChatInput{
		Name:      deref(args.Input.Name),
		AdminID:   adminID,
		MemberIDs: derefIDs(args.Input.Members),
	})
	if err != nil {
		return nil, toError(err)
	}
	return r.chat(chat), nil
}

func (r *Resolver) PostMessageToChat(ctx context.Context, args struct {
	ChatID graphql.ID
	Input  *messageInput
}) (*ChatResolver, error) {
	if args.Input == nil {
		return nil, badInput("input is required")
	}
	chat, err := r.chats.PostMessage(ctx, string(args.ChatID), services.PostMessageInput{
		Description: args.Input.Description,
		AuthorID:    string(args.Input.Author),
		Content:     deref(args.Input.Content),
		Timeslots:   derefStrings(args.Input.Timeslots),
		Photo:       deref(args.Input.Photo),
	})
	if err != nil {
		return nil, toError(err)
	}
	return r.chat(chat), nil
}

// Subscriptions

// MessageSent streams messages posted to the author's chats until ctx is done
func (r *Resolver) MessageSent(ctx context.Context, args struct {
	Author graphql.ID
	ChatID *graphql.ID
}) (<-chan *MessageResolver, error) {
	var chatID string
	if args.ChatID != nil {
		chatID = string(*args.ChatID)
	}

	sub, err := r.chats.Subscribe(ctx, string(args.Author), chatID)
	if err != nil {
		return nil, toQueryError(err)
	}

	out := make(chan *MessageResolver)
	go func() {
		defer close(out)
		defer r.chats.Unsubscribe(sub.ID)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Messages():
				if !ok {
					return
				}
				select {
				case out <- &MessageResolver{message: msg}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
