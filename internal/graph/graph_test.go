package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/repository/sqlite"
	"bucket-list-backend/internal/services"

	"github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	exec    *Executor
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	hub := services.NewMessageHub(8, m)
	resolver := NewResolver(
		services.NewUserService(store.Users(), "secret"),
		services.NewBucketService(store.Buckets(), store.Users()),
		services.NewChatService(store.Chats(), store.Users(), hub, services.NoopPusher{}, m),
	)

	exec, err := NewExecutor(resolver, Options{MaxDepth: 10, MaxParallelism: 4}, m)
	require.NoError(t, err)

	return &testServer{exec: exec, metrics: m}
}

// do runs an operation and decodes its data, failing on any error
func (s *testServer) do(t *testing.T, query string, vars map[string]interface{}, out interface{}) {
	t.Helper()
	resp := s.exec.Exec(context.Background(), Request{Query: query, Variables: vars})
	require.Empty(t, resp.Errors, "unexpected errors")
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}

// code runs an operation that must fail and returns the first error code
func (s *testServer) code(t *testing.T, query string, vars map[string]interface{}) string {
	t.Helper()
	resp := s.exec.Exec(context.Background(), Request{Query: query, Variables: vars})
	require.NotEmpty(t, resp.Errors)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

const registerMutation = `mutation($input: UserInput!) { registerUser(input: $input) { id username password createdAt } }`

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	var out struct {
		RegisterUser struct{ ID string } `json:"registerUser"`
	}
	s.do(t, registerMutation, map[string]interface{}{
		"input": map[string]interface{}{"username": username, "password": "pw-" + username, "email": username + "@example.com"},
	}, &out)
	require.NotEmpty(t, out.RegisterUser.ID)
	return out.RegisterUser.ID
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

func TestRegisterAndFetchUser(t *testing.T) {
	s := newTestServer(t)

	var reg struct {
		RegisterUser struct {
			ID        string
			Username  string
			Password  *string
			CreatedAt string
		} `json:"registerUser"`
	}
	s.do(t, registerMutation, map[string]interface{}{
		"input": map[string]interface{}{"firstName": "Ada", "username": "ada", "password": "pw"},
	}, &reg)

	assert.Equal(t, "ada", reg.RegisterUser.Username)
	assert.Nil(t, reg.RegisterUser.Password)
	assert.Regexp(t, dateRe, reg.RegisterUser.CreatedAt)

	var got struct {
		GetUserByID *struct {
			FirstName string
			Email     *string
		} `json:"getUserById"`
		GetUserByUsername *struct{ ID string } `json:"getUserByUsername"`
		Missing           *struct{ ID string } `json:"missing"`
		NoName            *struct{ ID string } `json:"noName"`
	}
	s.do(t, `query($id: ID!) {
		getUserById(userId: $id) { firstName email }
		getUserByUsername(username: "ada") { id }
		missing: getUserById(userId: "nope") { id }
		noName: getUserByUsername { id }
	}`, map[string]interface{}{"id": reg.RegisterUser.ID}, &got)

	require.NotNil(t, got.GetUserByID)
	assert.Equal(t, "Ada", got.GetUserByID.FirstName)
	assert.Nil(t, got.GetUserByID.Email)
	require.NotNil(t, got.GetUserByUsername)
	assert.Equal(t, reg.RegisterUser.ID, got.GetUserByUsername.ID)
	assert.Nil(t, got.Missing)
	assert.Nil(t, got.NoName)
}

func TestLoginUser(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "bob")

	var out struct {
		LoginUser struct{ ID string } `json:"loginUser"`
	}
	s.do(t, `mutation { loginUser(input: { username: "bob", password: "pw-bob", firstName: "ignored" }) { id } }`, nil, &out)
	assert.Equal(t, id, out.LoginUser.ID)

	code := s.code(t, `mutation { loginUser(input: { username: "bob", password: "nope" }) { id } }`, nil)
	assert.Equal(t, CodeUnauthenticated, code)
}

func TestErrorCodes(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "carl")

	assert.Equal(t, CodeConflict, s.code(t, `mutation { registerUser(input: { username: "carl", password: "x" }) { id } }`, nil))
	assert.Equal(t, CodeBadUserInput, s.code(t, `mutation { registerUser(input: { username: "dora" }) { id } }`, nil))
	assert.Equal(t, CodeNotFound, s.code(t, `mutation { changeBucketName(bucketId: "nope", title: "x") { id } }`, nil))
	assert.Equal(t, CodeNotFound, s.code(t, `mutation { createBucket(input: { title: "x" }, userId: "nope") { id } }`, nil))
	assert.Equal(t, CodeBadUserInput, s.code(t, `mutation { createChat { id } }`, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.GraphQLOperations.WithLabelValues("mutation", "ok")))
	assert.Equal(t, 5.0, testutil.ToFloat64(s.metrics.GraphQLOperations.WithLabelValues("mutation", "error")))
}

func TestBucketLifecycle(t *testing.T) {
	s := newTestServer(t)
	eli := s.register(t, "eli")
	fox := s.register(t, "fox")

	type place struct {
		ID               string
		Name             string
		Rating           *float64
		UserRatingsTotal *int     `json:"user_ratings_total"`
		WeekdayText      []string `json:"weekday_text"`
		OpenNow          *bool    `json:"open_now"`
		ImgArr           []string `json:"imgArr"`
		URL              *string  `json:"url"`
		Notes            *string
	}
	type bucket struct {
		ID          string
		Title       string
		Notes       *string
		DateCreated string `json:"date_created"`
		Author      struct{ ID string }
		Members     []struct{ ID string }
		Categories  []struct {
			ID     string
			Label  string
			Places []place
		}
	}
	const fields = `id title notes date_created author { id } members { id }
		categories { id label places { id name rating user_ratings_total weekday_text open_now imgArr url notes } }`

	var created struct{ CreateBucket bucket }
	s.do(t, `mutation($user: ID!, $place: PlaceInput) {
		createBucket(input: { title: "Lisbon" }, place: $place, userId: $user) { `+fields+` } }`,
		map[string]interface{}{
			"user": eli,
			"place": map[string]interface{}{
				"name":               "Time Out Market",
				"rating":             4.6,
				"user_ratings_total": float64(1200),
				"weekday_text":       []interface{}{"Mon", "Tue"},
				"open_now":           true,
				"imgArr":             []interface{}{"1.jpg"},
				"url":                "https://maps.example.com/x",
			},
		}, &created)

	b := created.CreateBucket
	assert.Equal(t, "Lisbon", b.Title)
	assert.Nil(t, b.Notes)
	assert.Regexp(t, dateRe, b.DateCreated)
	assert.Equal(t, eli, b.Author.ID)
	require.Len(t, b.Members, 1)
	require.Len(t, b.Categories, 1)
	assert.Equal(t, "General", b.Categories[0].Label)
	require.Len(t, b.Categories[0].Places, 1)

	p := b.Categories[0].Places[0]
	assert.Equal(t, "Time Out Market", p.Name)
	require.NotNil(t, p.Rating)
	assert.Equal(t, 4.6, *p.Rating)
	require.NotNil(t, p.UserRatingsTotal)
	assert.Equal(t, 1200, *p.UserRatingsTotal)
	assert.Equal(t, []string{"Mon", "Tue"}, p.WeekdayText)
	require.NotNil(t, p.OpenNow)
	assert.True(t, *p.OpenNow)
	assert.Equal(t, []string{"1.jpg"}, p.ImgArr)

	vars := map[string]interface{}{"b": b.ID, "c": b.Categories[0].ID, "p": p.ID, "u": fox}

	s.do(t, `mutation($b: ID!, $u: ID!) { addUserToBucket(bucketId: $b, userId: $u) { id } }`, vars, nil)
	s.do(t, `mutation($b: ID!) { changeBucketName(bucketId: $b, title: "Porto") { id } }`, vars, nil)
	s.do(t, `mutation($b: ID!) { editBucketNotes(bucketId: $b, newNote: "bring cash") { id } }`, vars, nil)
	s.do(t, `mutation($b: ID!, $c: ID!) { changeCatName(bucketId: $b, catId: $c, label: "Food") { id } }`, vars, nil)
	s.do(t, `mutation($b: ID!, $c: ID!, $p: ID!) { changePlaceName(bucketId: $b, catId: $c, placeId: $p, name: "Mercado") { id } }`, vars, nil)
	s.do(t, `mutation($b: ID!, $c: ID!, $p: ID!) { editPlaceNotes(bucketId: $b, catId: $c, placeId: $p, newNote: "lunch") { id } }`, vars, nil)

	var added struct {
		AddCategory struct{ ID, Label string } `json:"addCategory"`
	}
	s.do(t, `mutation($b: ID!) { addCategory(bucketId: $b, label: "Views") { id label } }`, vars, &added)
	assert.Equal(t, "Views", added.AddCategory.Label)

	var addedPlace struct {
		AddPlace struct{ ID, Name string } `json:"addPlace"`
	}
	s.do(t, `mutation($c: ID!) { addPlace(catId: $c, input: { name: "Miradouro" }) { id name } }`,
		map[string]interface{}{"c": added.AddCategory.ID}, &addedPlace)
	assert.Equal(t, "Miradouro", addedPlace.AddPlace.Name)

	var got struct{ GetBucketByID bucket `json:"getBucketById"` }
	s.do(t, `query($b: ID!) { getBucketById(bucketId: $b) { `+fields+` } }`, vars, &got)
	g := got.GetBucketByID
	assert.Equal(t, "Porto", g.Title)
	require.NotNil(t, g.Notes)
	assert.Equal(t, "bring cash", *g.Notes)
	assert.Len(t, g.Members, 2)
	require.Len(t, g.Categories, 2)
	assert.Equal(t, "Food", g.Categories[0].Label)
	assert.Equal(t, "Mercado", g.Categories[0].Places[0].Name)
	require.NotNil(t, g.Categories[0].Places[0].Notes)
	assert.Equal(t, "lunch", *g.Categories[0].Places[0].Notes)
	assert.Equal(t, "Views", g.Categories[1].Label)

	var list struct{ GetBuckets []struct{ ID string } `json:"getBuckets"` }
	s.do(t, `query($u: ID!) { getBuckets(userId: $u) { id } }`, vars, &list)
	require.Len(t, list.GetBuckets, 1)

	var delPlace struct{ DeletePlace bucket `json:"deletePlace"` }
	s.do(t, `mutation($b: ID!, $c: ID!, $p: ID!) { deletePlace(bucketId: $b, catId: $c, placeId: $p) { `+fields+` } }`, vars, &delPlace)
	assert.Empty(t, delPlace.DeletePlace.Categories[0].Places)

	var delCat struct{ DeleteCategory bucket `json:"deleteCategory"` }
	s.do(t, `mutation($b: ID!, $c: ID!) { deleteCategory(bucketId: $b, catId: $c) { `+fields+` } }`, vars, &delCat)
	require.Len(t, delCat.DeleteCategory.Categories, 1)
	assert.Equal(t, "Views", delCat.DeleteCategory.Categories[0].Label)

	var del struct{ DeleteBucket bucket `json:"deleteBucket"` }
	s.do(t, `mutation($b: ID!) { deleteBucket(bucketId: $b) { `+fields+` } }`, vars, &del)
	assert.Equal(t, "Porto", del.DeleteBucket.Title)
	assert.Len(t, del.DeleteBucket.Categories, 1)

	var after struct{ GetBucketByID *bucket `json:"getBucketById"` }
	s.do(t, `query($b: ID!) { getBucketById(bucketId: $b) { id } }`, vars, &after)
	assert.Nil(t, after.GetBucketByID)
}

func TestFriends(t *testing.T) {
	s := newTestServer(t)
	gil := s.register(t, "gil")
	hoa := s.register(t, "hoa")
	vars := map[string]interface{}{"a": gil, "b": hoa}

	var added struct {
		AddFriendToUser []struct{ ID string } `json:"addFriendToUser"`
	}
	s.do(t, `mutation($a: ID!, $b: ID!) { addFriendToUser(userId: $a, friendId: $b) { id } }`, vars, &added)
	require.Len(t, added.AddFriendToUser, 1)
	assert.Equal(t, hoa, added.AddFriendToUser[0].ID)

	var friends struct {
		GetUserByID struct {
			Friends []struct{ ID string }
		} `json:"getUserById"`
	}
	s.do(t, `query($b: ID!) { getUserById(userId: $b) { friends { id } } }`, vars, &friends)
	require.Len(t, friends.GetUserByID.Friends, 1)
	assert.Equal(t, gil, friends.GetUserByID.Friends[0].ID)

	var removed struct {
		RemoveFriendFromUser []struct{ ID string } `json:"removeFriendFromUser"`
	}
	s.do(t, `mutation($a: ID!, $b: ID!) { removeFriendFromUser(userId: $a, friendId: $b) { id } }`, vars, &removed)
	assert.Empty(t, removed.RemoveFriendFromUser)

	assert.Equal(t, CodeBadUserInput, s.code(t, `mutation($a: ID!) { addFriendToUser(userId: $a, friendId: $a) { id } }`, vars))
}

func TestUserProfileMutations(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "ivo")
	vars := map[string]interface{}{"u": id}

	s.do(t, `mutation($u: ID!) { addInfoToUser(userId: $u, location: "Oslo", vibe: "calm") { id } }`, vars, nil)

	var out struct {
		AddInfoToUser struct {
			Location, Vibe string
			Emojis         *string
		} `json:"addInfoToUser"`
	}
	s.do(t, `mutation($u: ID!) { addInfoToUser(userId: $u, emojis: "⛷") { location vibe emojis } }`, vars, &out)
	assert.Equal(t, "Oslo", out.AddInfoToUser.Location)
	assert.Equal(t, "calm", out.AddInfoToUser.Vibe)
	require.NotNil(t, out.AddInfoToUser.Emojis)

	var pic struct {
		AddProfilePicToUser struct {
			ProfilePic *string `json:"profile_pic"`
		} `json:"addProfilePicToUser"`
	}
	s.do(t, `mutation($u: ID!) { addProfilePicToUser(userId: $u, profile_pic: "https://x/p.png") { profile_pic } }`, vars, &pic)
	require.NotNil(t, pic.AddProfilePicToUser.ProfilePic)
	assert.Equal(t, "https://x/p.png", *pic.AddProfilePicToUser.ProfilePic)
}

func TestChatsAndMessages(t *testing.T) {
	s := newTestServer(t)
	jo := s.register(t, "jo")
	kai := s.register(t, "kai")
	lin := s.register(t, "lin")

	var created struct {
		CreateChat struct {
			ID      string
			Name    string
			Admin   string
			Members []struct{ ID string }
		} `json:"createChat"`
	}
	s.do(t, `mutation($a: ID!, $m: [ID]) { createChat(input: { name: "crew", admin: $a, members: $m }) { id name admin members { id } } }`,
		map[string]interface{}{"a": jo, "m": []interface{}{kai, kai}}, &created)
	chat := created.CreateChat
	assert.Equal(t, "crew", chat.Name)
	assert.Equal(t, jo, chat.Admin)
	assert.Len(t, chat.Members, 2)

	vars := map[string]interface{}{"c": chat.ID, "a": kai}
	var posted struct {
		PostMessageToChat struct {
			ID        string
			UpdatedAt string
			Messages  []struct {
				ChatID      string `json:"chatId"`
				Author      string
				Description string
				Content     string
				Timeslots   []string
				CreatedAt   string
			}
		} `json:"postMessageToChat"`
	}
	s.do(t, `mutation($c: ID!, $a: ID!) {
		postMessageToChat(chatId: $c, input: { description: "plan", author: $a, content: "fri?", timeslots: ["18:00"] }) {
			id updatedAt messages { chatId author description content timeslots createdAt }
		} }`, vars, &posted)

	require.Len(t, posted.PostMessageToChat.Messages, 1)
	msg := posted.PostMessageToChat.Messages[0]
	assert.Equal(t, chat.ID, msg.ChatID)
	assert.Equal(t, kai, msg.Author)
	assert.Equal(t, "fri?", msg.Content)
	assert.Equal(t, []string{"18:00"}, msg.Timeslots)
	assert.Regexp(t, dateRe, msg.CreatedAt)

	var chats struct {
		GetChats []struct{ ID string } `json:"getChats"`
	}
	s.do(t, `query($a: ID!) { getChats(userId: $a) { id } }`, vars, &chats)
	require.Len(t, chats.GetChats, 1)

	var missing struct {
		GetChatByID *struct{ ID string } `json:"getChatById"`
	}
	s.do(t, `{ getChatById(chatId: "nope") { id } }`, nil, &missing)
	assert.Nil(t, missing.GetChatByID)

	outsider := map[string]interface{}{"c": chat.ID, "a": lin}
	assert.Equal(t, CodeForbidden, s.code(t,
		`mutation($c: ID!, $a: ID!) { postMessageToChat(chatId: $c, input: { description: "x", author: $a }) { id } }`, outsider))
	assert.Equal(t, CodeBadUserInput, s.code(t, `mutation($c: ID!) { postMessageToChat(chatId: $c) { id } }`, vars))
}

func TestMessageSentSubscription(t *testing.T) {
	s := newTestServer(t)
	mae := s.register(t, "mae")
	ned := s.register(t, "ned")

	var created struct {
		CreateChat struct{ ID string } `json:"createChat"`
	}
	s.do(t, `mutation($a: ID!, $m: [ID]) { createChat(input: { admin: $a, members: $m }) { id } }`,
		map[string]interface{}{"a": mae, "m": []interface{}{ned}}, &created)
	chatID := created.CreateChat.ID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := s.exec.Subscribe(ctx, Request{
		Query:     `subscription($u: ID!, $c: ID) { messageSent(author: $u, chatId: $c) { chatId author content } }`,
		Variables: map[string]interface{}{"u": ned, "c": chatID},
	})
	require.NoError(t, err)

	s.do(t, `mutation($c: ID!, $a: ID!) { postMessageToChat(chatId: $c, input: { description: "d", author: $a, content: "hello" }) { id } }`,
		map[string]interface{}{"c": chatID, "a": mae}, nil)

	select {
	case raw := <-stream:
		resp, ok := raw.(*graphql.Response)
		require.True(t, ok)
		require.Empty(t, resp.Errors)

		var out struct {
			MessageSent struct {
				ChatID  string `json:"chatId"`
				Author  string
				Content string
			} `json:"messageSent"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.Equal(t, chatID, out.MessageSent.ChatID)
		assert.Equal(t, mae, out.MessageSent.Author)
		assert.Equal(t, "hello", out.MessageSent.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestMessageSentForbiddenForOutsiders(t *testing.T) {
	s := newTestServer(t)
	ola := s.register(t, "ola")
	pia := s.register(t, "pia")

	var created struct {
		CreateChat struct{ ID string } `json:"createChat"`
	}
	s.do(t, `mutation($a: ID!) { createChat(input: { admin: $a }) { id } }`, map[string]interface{}{"a": ola}, &created)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := s.exec.Subscribe(ctx, Request{
		Query:     `subscription($u: ID!, $c: ID) { messageSent(author: $u, chatId: $c) { id } }`,
		Variables: map[string]interface{}{"u": pia, "c": created.CreateChat.ID},
	})
	require.NoError(t, err)

	select {
	case raw := <-stream:
		resp, ok := raw.(*graphql.Response)
		require.True(t, ok)
		require.NotEmpty(t, resp.Errors)
		assert.Equal(t, CodeForbidden, resp.Errors[0].Extensions["code"])
	case <-time.After(2 * time.Second):
		t.Fatal("no error response received")
	}
}

func TestMessageSentUnknownAuthorCarriesCode(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := s.exec.Subscribe(ctx, Request{
		Query:     `subscription($u: ID!) { messageSent(author: $u) { id } }`,
		Variables: map[string]interface{}{"u": "no-such-user"},
	})
	require.NoError(t, err)

	select {
	case raw := <-stream:
		resp, ok := raw.(*graphql.Response)
		require.True(t, ok)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, CodeNotFound, resp.Errors[0].Extensions["code"])
		assert.Contains(t, resp.Errors[0].Message, "not found")
	case <-time.After(2 * time.Second):
		t.Fatal("no error response received")
	}
}

func TestToQueryErrorKeepsExtensions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"forbidden", fmt.Errorf("not a member: %w", services.ErrForbidden), CodeForbidden},
		{"not found", fmt.Errorf("user x: %w", services.ErrNotFound), CodeNotFound},
		{"internal", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qe *gqlerrors.QueryError
			require.ErrorAs(t, toQueryError(tt.err), &qe)
			assert.Equal(t, tt.code, qe.Extensions["code"])
		})
	}
	assert.NoError(t, toQueryError(nil))
}

func TestOperationType(t *testing.T) {
	assert.Equal(t, "query", OperationType(`{ getBuckets(userId: "1") { id } }`, ""))
	assert.Equal(t, "mutation", OperationType(`mutation M { deleteBucket(bucketId: "1") { id } }`, ""))
	assert.Equal(t, "subscription", OperationType(`query A { a } subscription B { b }`, "B"))
	assert.Equal(t, "unknown", OperationType(`query A { a } query B { b }`, ""))
	assert.Equal(t, "unknown", OperationType(`{ broken`, ""))
}

func TestDateScalar(t *testing.T) {
	d := Date{Time: time.Date(2024, 3, 9, 14, 5, 6, 789_000_000, time.FixedZone("X", 3600))}
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09T13:05:06.789Z"`, string(out))

	var parsed Date
	require.NoError(t, parsed.UnmarshalGraphQL("2024-03-09T13:05:06.789Z"))
	assert.True(t, parsed.Equal(d.Time))

	require.NoError(t, parsed.UnmarshalGraphQL(float64(0)))
	assert.Equal(t, int64(0), parsed.Unix())

	assert.Error(t, parsed.UnmarshalGraphQL(true))
	assert.Error(t, parsed.UnmarshalGraphQL("yesterday"))
	assert.True(t, Date{}.ImplementsGraphQLType("Date"))
	assert.False(t, Date{}.ImplementsGraphQLType("String"))
}
