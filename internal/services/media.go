package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Upload kinds accepted by MediaService
const (
	KindProfilePic   = "profile_pic"
	KindMessagePhoto = "message_photo"
	KindPlacePhoto   = "place_photo"
)

const defaultUploadExpiry = 5 * time.Minute

var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// MediaConfig configures the S3 (or S3-compatible) store that holds uploads
type MediaConfig struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
	UploadExpiry    time.Duration
}

// MediaService issues pre-signed upload URLs for user media
type MediaService struct {
	presigner *s3.PresignClient
	cfg       MediaConfig
}

// NewMediaService creates a new media service
func NewMediaService(ctx context.Context, cfg MediaConfig) (*MediaService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidInput)
	}
	if cfg.UploadExpiry <= 0 {
		cfg.UploadExpiry = defaultUploadExpiry
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &MediaService{
		presigner: s3.NewPresignClient(s3Client),
		cfg:       cfg,
	}, nil
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// GetPreSignedURL generates a pre-signed PUT URL for a new object owned by userID
func (s *MediaService) GetPreSignedURL(ctx context.Context, userID string, req UploadRequest) (*UploadResponse, error) {
	switch req.Kind {
	case KindProfilePic, KindMessagePhoto, KindPlacePhoto:
	default:
		return nil, fmt.Errorf("%w: unknown upload kind %q", ErrInvalidInput, req.Kind)
	}
	ext, ok := contentTypeExt[strings.ToLower(req.ContentType)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, req.ContentType)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate object id: %w", err)
	}
	key := path.Join(req.Kind, userID, id+ext)

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.cfg.UploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PublicURL: s.PublicURL(key),
		Key:       key,
		ExpiresIn: int(s.cfg.UploadExpiry.Seconds()),
	}, nil
}

// PublicURL returns the URL an uploaded object is served from
func (s *MediaService) PublicURL(key string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	}
}
