package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

// R2Config holds credentials and addressing for a Cloudflare R2 bucket.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	PresignExpiry   time.Duration
}

// R2 publishes staged artifacts to a Cloudflare R2 bucket. When PublicURL
// is set links point at the public bucket domain, otherwise a presigned
// URL is generated per artifact.
type R2 struct {
	client        *s3.Client
	bucket        string
	publicURL     string
	presignExpiry time.Duration
	log           *slog.Logger
}

// NewR2 creates an R2 publisher over the S3-compatible endpoint.
func NewR2(ctx context.Context, cfg *R2Config, log *slog.Logger) (*R2, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("incomplete R2 configuration")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	log.Info("R2 publisher initialized",
		"bucket", cfg.BucketName,
		"endpoint", endpoint,
	)

	return &R2{
		client:        client,
		bucket:        cfg.BucketName,
		publicURL:     cfg.PublicURL,
		presignExpiry: expiry,
		log:           log,
	}, nil
}

// Publish uploads the staged file under its staged name and returns the
// shareable link. The filename query parameter is honored the same way
// the local file host honors it.
func (r *R2) Publish(ctx context.Context, art *domain.StagedArtifact, displayTitle string) (string, error) {
	file, err := os.Open(art.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open staged file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat staged file: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(art.FileName),
		Body:          file,
		ContentType:   aws.String(contentTypeFor(art.Path)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	r.log.Info("artifact uploaded to R2",
		"key", art.FileName,
		"size", info.Size(),
	)

	display := SanitizeDisplayName(displayTitle) + "." + art.Ext

	if r.publicURL != "" {
		return fmt.Sprintf("%s/%s?filename=%s",
			r.publicURL,
			url.PathEscape(art.FileName),
			url.QueryEscape(display),
		), nil
	}

	presigner := s3.NewPresignClient(r.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(r.bucket),
		Key:                        aws.String(art.FileName),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", display)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = r.presignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return req.URL, nil
}

// DeleteOlderThan removes bucket objects last modified before now-age and
// returns how many were deleted. Used by the retention cleaner.
func (r *R2) DeleteOlderThan(ctx context.Context, age time.Duration) (int, error) {
	output, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list objects: %w", err)
	}

	threshold := time.Now().Add(-age)
	deleted := 0
	for _, obj := range output.Contents {
		if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(threshold) {
			continue
		}
		_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			r.log.Warn("failed to delete old object", "key", *obj.Key, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		r.log.Info("deleted expired objects from R2", "count", deleted, "age", age)
	}

	return deleted, nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".m4a":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
