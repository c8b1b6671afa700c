// Package storage uploads avatar images to an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/contact-book/internal/config"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AvatarStore writes avatars and returns their public URLs.
type AvatarStore struct {
	client    objectPutter
	bucket    string
	publicURL string
	prefix    string
}

// NewAvatarStore builds an S3 client from cfg.  Static credentials are used
// when an access key is configured; otherwise the default AWS chain applies.
// A BaseEndpoint switches the client to path-style addressing for MinIO.
func NewAvatarStore(ctx context.Context, cfg config.StorageConfig) (*AvatarStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newAvatarStore(client, cfg), nil
}

func newAvatarStore(client objectPutter, cfg config.StorageConfig) *AvatarStore {
	return &AvatarStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		prefix:    strings.Trim(cfg.KeyPrefix, "/"),
	}
}

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadAvatar stores body under a fresh key for the user and returns the
// public URL of the object.
func (s *AvatarStore) UploadAvatar(ctx context.Context, userID uint64, contentType string, body io.Reader, size int64) (string, error) {
	key := path.Join(s.prefix, "avatars", fmt.Sprint(userID), uuid.NewString()+extByType[contentType])
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put avatar %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
