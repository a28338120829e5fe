package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	cfg "github.com/dafibh/revledger/revledger-backend/internal/config"
	"github.com/dafibh/revledger/revledger-backend/internal/domain"
	"github.com/google/uuid"
)

// DeadLetterPrefix is the key prefix of archived dead letters
const DeadLetterPrefix = "dead-letters"

// S3API is the subset of the S3 client used by the archive
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3DeadLetterRepository archives dead-lettered invoice events as JSON
// objects, one per event, keyed by day
type S3DeadLetterRepository struct {
	client S3API
	bucket string
}

// NewS3DeadLetterRepository creates a new S3 dead-letter archive
func NewS3DeadLetterRepository(ctx context.Context, s3cfg cfg.S3Config) (*S3DeadLetterRepository, error) {
	// Build AWS config options
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}

	// Add credentials if provided
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3cfg.AccessKeyID,
				s3cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with optional endpoint override for MinIO/LocalStack
	var client *s3.Client
	if s3cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	repo := NewS3DeadLetterRepositoryWithClient(client, s3cfg.Bucket)
	if err := repo.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewS3DeadLetterRepositoryWithClient wraps an existing client
func NewS3DeadLetterRepositoryWithClient(client S3API, bucket string) *S3DeadLetterRepository {
	return &S3DeadLetterRepository{client: client, bucket: bucket}
}

// ensureBucket creates the bucket if it doesn't exist
func (r *S3DeadLetterRepository) ensureBucket(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket (may be permission denied): %w", err)
	}

	_, err = r.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(r.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Record stores one dead letter
func (r *S3DeadLetterRepository) Record(ctx context.Context, letter domain.DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(ObjectKey(letter)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload dead letter: %w", err)
	}
	return nil
}

// List returns the keys archived on the given UTC day
func (r *S3DeadLetterRepository) List(ctx context.Context, day time.Time) ([]string, error) {
	prefix := DayPrefix(day)
	var keys []string
	var token *string

	for {
		out, err := r.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(r.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list dead letters: %w", err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

// Get loads one archived dead letter
func (r *S3DeadLetterRepository) Get(ctx context.Context, key string) (*domain.DeadLetter, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download dead letter: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letter: %w", err)
	}

	var letter domain.DeadLetter
	if err := json.Unmarshal(data, &letter); err != nil {
		return nil, fmt.Errorf("failed to decode dead letter: %w", err)
	}
	return &letter, nil
}

// DayPrefix returns the key prefix for dead letters recorded on day
func DayPrefix(day time.Time) string {
	return path.Join(DeadLetterPrefix, day.UTC().Format("2006/01/02")) + "/"
}

// ObjectKey builds the archive key of a dead letter.
// Events without an identifier get a random name.
func ObjectKey(letter domain.DeadLetter) string {
	at := letter.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	name := strings.ReplaceAll(letter.EventID, "/", "_")
	if name == "" {
		name = uuid.New().String()
	}
	return path.Join(DeadLetterPrefix, at.UTC().Format("2006/01/02"), fmt.Sprintf("%s_%s.json", at.UTC().Format("150405"), name))
}
