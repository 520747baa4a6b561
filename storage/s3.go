package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/errs"
)

// ObjectPutter is the slice of the S3 API used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 compatible store. Supabase Storage works with
// Endpoint set to https://<ref>.supabase.co/storage/v1/s3 and PublicURL set
// to https://<ref>.supabase.co/storage/v1/object/public.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	UsePathStyle    bool
}

type S3Store struct {
	client    ObjectPutter
	publicURL string
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errs.NewConfigError("s3", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return NewS3StoreWithClient(client, opts.PublicURL), nil
}

func NewS3StoreWithClient(client ObjectPutter, publicURL string) *S3Store {
	return &S3Store{client: client, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *S3Store) Upload(ctx context.Context, bucket string, f File) (string, error) {
	body, err := f.Open()
	if err != nil {
		return "", errs.NewStorageError(bucket, fmt.Errorf("open %s: %w", f.Name(), err))
	}
	defer body.Close()

	key := ObjectKey(f.Name())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(f.ContentType()),
		ContentLength: aws.Int64(f.Size()),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "EntityTooLarge", "QuotaExceeded", "InsufficientStorage":
				return "", errs.NewStorageQuotaFullError(bucket)
			}
		}
		return "", errs.NewStorageError(bucket, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, key)
	log.Debug().Str("bucket", bucket).Str("key", key).Int64("size", f.Size()).Msg("object uploaded")
	return url, nil
}
