package dataset

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"
)

// ObjectGetter is the part of the S3 client the provider needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configures an S3 or S3-compatible (MinIO) dataset bucket
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional; enables a custom endpoint
	PathStyle       bool
	AccessKeyID     string // optional; falls back to the default credentials chain
	SecretAccessKey string
}

// S3Provider reads <prefix><name>.csv objects from a bucket
type S3Provider struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Provider builds an S3 client from opts
func NewS3Provider(ctx context.Context, opts S3Options) (*S3Provider, error) {
	if opts.Bucket == "" {
		return nil, eris.New("s3: bucket required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "s3: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.PathStyle {
			o.UsePathStyle = true
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewS3ProviderWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3ProviderWithClient wraps an existing client
func NewS3ProviderWithClient(client ObjectGetter, bucket, prefix string) *S3Provider {
	return &S3Provider{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a resource name maps to
func (p *S3Provider) Key(name string) string {
	if path.Ext(name) == "" {
		name += ".csv"
	}
	if p.prefix == "" {
		return name
	}
	return strings.TrimSuffix(p.prefix, "/") + "/" + name
}

// Fetch downloads and parses one CSV object
func (p *S3Provider) Fetch(ctx context.Context, name string) (*RawTable, error) {
	key := p.Key(name)
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, eris.Wrapf(ErrResourceUnavailable, "s3 object not found: s3://%s/%s", p.bucket, key)
		}
		return nil, eris.Wrapf(err, "s3: get s3://%s/%s", p.bucket, key)
	}
	defer out.Body.Close()

	return ReadCSV(ctx, out.Body)
}
