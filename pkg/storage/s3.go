package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by [S3Store].
// [s3.Client] satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config configures an S3-compatible bucket. For Volcengine TOS use the
// S3 endpoint of the region, e.g. https://tos-s3-cn-beijing.volces.com.
type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// S3Store stores files as objects under an optional key prefix.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3 creates an S3Store on a configured client.
func NewS3(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3FromConfig builds an s3.Client with static credentials from cfg.
func NewS3FromConfig(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		ak, sk := cfg.AccessKey, cfg.SecretKey
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: ak, SecretAccessKey: sk, Source: "jimeng"}, nil
		})
	}
	return NewS3(s3.New(opts), cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Store) key(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	if s.prefix == "" {
		return clean, nil
	}
	return s.prefix + "/" + clean, nil
}

// Read fetches the named object.
func (s *S3Store) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("storage: read %s: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

// Write buffers the object and uploads it on Close with If-None-Match: *,
// so an existing key is never replaced.
func (s *S3Store) Write(ctx context.Context, name string) (io.WriteCloser, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	return &s3Writer{ctx: ctx, store: s, name: name, key: key}, nil
}

// Delete removes the named object.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Exists checks the named object with HeadObject.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List pages through ListObjectsV2 and returns the objects directly under
// the prefix.
func (s *S3Store) List(ctx context.Context) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	var keyPrefix string
	if s.prefix != "" {
		keyPrefix = s.prefix + "/"
		input.Prefix = aws.String(keyPrefix)
	}

	var objects []Object
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			objects = append(objects, Object{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return objects, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

type s3Writer struct {
	ctx    context.Context
	store  *S3Store
	name   string
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Close uploads the buffered data.
func (w *s3Writer) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true

	input := &s3.PutObjectInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(int64(w.buf.Len())),
		IfNoneMatch:   aws.String("*"),
	}
	if ct := mime.TypeByExtension(path.Ext(w.name)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	_, err := w.store.client.PutObject(w.ctx, input)
	if err != nil && isS3Conflict(err) {
		return fmt.Errorf("storage: write %s: %w", w.name, os.ErrExist)
	}
	return err
}

func isS3NotFound(err error) bool {
	return hasS3Code(err, "NotFound", "NoSuchKey")
}

// isS3Conflict reports a failed If-None-Match precondition.
func isS3Conflict(err error) bool {
	return hasS3Code(err, "PreconditionFailed", "ConditionalRequestConflict")
}

func hasS3Code(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

var _ FileStore = (*S3Store)(nil)
