package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMedia(t *testing.T, cfg MediaConfig) *MediaService {
	t.Helper()
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.AccessKeyID == "" {
		cfg.AccessKeyID = "AKIDEXAMPLE"
		cfg.SecretAccessKey = "secret"
	}
	svc, err := NewMediaService(context.Background(), cfg)
	require.NoError(t, err)
	return svc
}

func TestGetPreSignedURL(t *testing.T) {
	svc := newTestMedia(t, MediaConfig{
		Bucket:       "media",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		UploadExpiry: 2 * time.Minute,
	})

	resp, err := svc.GetPreSignedURL(context.Background(), "user-1", UploadRequest{
		Kind:        KindProfilePic,
		ContentType: "image/png",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "profile_pic/user-1/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".png"))
	assert.Equal(t, 120, resp.ExpiresIn)
	assert.Equal(t, "http://localhost:9000/media/"+resp.Key, resp.PublicURL)

	u, err := url.Parse(resp.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/media/"+resp.Key, u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "120", u.Query().Get("X-Amz-Expires"))
}

func TestGetPreSignedURLKeysAreUnique(t *testing.T) {
	svc := newTestMedia(t, MediaConfig{Bucket: "media"})

	a, err := svc.GetPreSignedURL(context.Background(), "u", UploadRequest{Kind: KindMessagePhoto, ContentType: "image/jpeg"})
	require.NoError(t, err)
	b, err := svc.GetPreSignedURL(context.Background(), "u", UploadRequest{Kind: KindMessagePhoto, ContentType: "image/jpeg"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.Equal(t, 300, a.ExpiresIn)
}

func TestGetPreSignedURLValidation(t *testing.T) {
	svc := newTestMedia(t, MediaConfig{Bucket: "media"})

	_, err := svc.GetPreSignedURL(context.Background(), "u", UploadRequest{Kind: "avatar", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.GetPreSignedURL(context.Background(), "u", UploadRequest{Kind: KindPlacePhoto, ContentType: "application/pdf"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPublicURL(t *testing.T) {
	aws := newTestMedia(t, MediaConfig{Bucket: "media", Region: "eu-west-1"})
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/k.jpg", aws.PublicURL("k.jpg"))

	cdn := newTestMedia(t, MediaConfig{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"})
	assert.Equal(t, "https://cdn.example.com/k.jpg", cdn.PublicURL("k.jpg"))
}

func TestNewMediaServiceNeedsBucket(t *testing.T) {
	_, err := NewMediaService(context.Background(), MediaConfig{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
