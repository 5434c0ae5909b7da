package models

import "time"

// User represents a registered user
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Username     string    `json:"username" gorm:"uniqueIndex"`
	Email        string    `json:"email" gorm:"uniqueIndex:idx_users_email_unique,where:email <> ''"`
	PasswordHash string    `json:"-"`
	Birthday     string    `json:"birthday"`
	Location     string    `json:"location"`
	Vibe         string    `json:"vibe"`
	Emojis       string    `json:"emojis"`
	ProfilePic   string    `json:"profile_pic"`
	PushToken    *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserInfo holds the optional profile fields set after registration.
// Nil fields are left untouched.
type UserInfo struct {
	Location *string
	Vibe     *string
	Emojis   *string
}

// Bucket is a user-curated collection of categorized places
type Bucket struct {
	ID         string      `json:"id" gorm:"primaryKey"`
	AuthorID   string      `json:"author" gorm:"index"`
	Title      string      `json:"title"`
	Notes      string      `json:"notes"`
	CreatedAt  time.Time   `json:"date_created"`
	UpdatedAt  time.Time   `json:"-"`
	MemberIDs  []string    `json:"members" gorm:"-"`
	Categories []*Category `json:"categories" gorm:"foreignKey:BucketID"`
}

// HasMember reports whether userID is the author or a member of the bucket.
func (b *Bucket) HasMember(userID string) bool {
	if b.AuthorID == userID {
		return true
	}
	for _, id := range b.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Category groups places inside a bucket
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	BucketID  string    `json:"-" gorm:"index"`
	Label     string    `json:"label"`
	Position  int       `json:"-"`
	CreatedAt time.Time `json:"-"`
	Places    []*Place  `json:"places" gorm:"foreignKey:CategoryID"`
}

// Place is a point of interest saved in a category
type Place struct {
	ID                       string    `json:"id" gorm:"primaryKey"`
	CategoryID               string    `json:"-" gorm:"index"`
	Position                 int       `json:"-"`
	Latitude                 *float64  `json:"latitude"`
	Longitude                *float64  `json:"longitude"`
	Name                     string    `json:"name"`
	Rating                   *float64  `json:"rating"`
	UserRatingsTotal         *int      `json:"user_ratings_total"`
	WeekdayText              []string  `json:"weekday_text" gorm:"serializer:json"`
	OpenNow                  *bool     `json:"open_now"`
	Description              string    `json:"description"`
	FormattedAddress         string    `json:"formatted_address"`
	InternationalPhoneNumber string    `json:"international_phone_number"`
	ImgArr                   []string  `json:"imgArr" gorm:"serializer:json"`
	URL                      string    `json:"url"`
	Review                   string    `json:"review"`
	Notes                    string    `json:"notes"`
	CreatedAt                time.Time `json:"-"`
}

// Chat is a group conversation between users
type Chat struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	AdminID   string    `json:"admin"`
	MemberIDs []string  `json:"members" gorm:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the chat.
func (c *Chat) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Message is a single post in a chat
type Message struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ChatID      string    `json:"chatId" gorm:"index"`
	Description string    `json:"description"`
	AuthorID    string    `json:"author"`
	Content     string    `json:"content"`
	Timeslots   []string  `json:"timeslots" gorm:"serializer:json"`
	Photo       string    `json:"photo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
