package media

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-faster/errors"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, for S3-compatible providers.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// PublicURL is the base URL objects are served from. Defaults to the
	// virtual-hosted bucket URL.
	PublicURL string
}

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Uploader stores objects in an S3 bucket.
type S3Uploader struct {
	client    PutObjectAPI
	bucket    string
	publicURL string
}

// NewS3Uploader creates an S3Uploader.
func NewS3Uploader(client PutObjectAPI, cfg S3Config) *S3Uploader {
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		public = "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
	}
	return &S3Uploader{client: client, bucket: cfg.Bucket, publicURL: public}
}

// Put implements Uploader. The write is conditional on the key being absent.
func (u *S3Uploader) Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error) {
	// Request signing needs a seekable body.
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return Object{}, errors.Wrap(err, "read body")
		}
		rs = bytes.NewReader(data)
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         rs,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(CacheControl),
		IfNoneMatch:  aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return Object{}, ErrExists
		}
		return Object{}, errors.Wrapf(err, "put s3://%s/%s", u.bucket, key)
	}
	return Object{Key: key, URL: u.publicURL + "/" + key}, nil
}
