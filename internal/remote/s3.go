package remote

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
	"github.com/google/uuid"

	"github.com/rcliao/quotesync/internal/logging"
	"github.com/rcliao/quotesync/internal/model"
)

// S3Config configures an S3Adapter.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // For S3-compatible services (MinIO, etc.)
	// Prefer IAM roles or the AWS_* environment variables over static keys.
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
	Category        string
}

// s3API is the subset of *s3.Client used by S3Adapter.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Adapter keeps the remote replica as one JSON object per quote under
// <prefix>quotes/.
type S3Adapter struct {
	cfg      S3Config
	client   s3API
	resolver Resolver
	clock    func() time.Time
}

type s3Object struct {
	RemoteID string `json:"remoteId"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewS3Adapter builds an adapter from the default AWS credential chain,
// optionally overridden by static keys and a custom endpoint.
func NewS3Adapter(ctx context.Context, cfg S3Config, r Resolver, opts ...Option) (*S3Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return newS3Adapter(cfg, s3.NewFromConfig(awsCfg, s3Opts...), r, opts...), nil
}

func newS3Adapter(cfg S3Config, client s3API, r Resolver, opts ...Option) *S3Adapter {
	if cfg.Category == "" {
		cfg.Category = "Server"
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &S3Adapter{cfg: cfg, client: client, resolver: r, clock: o.clock}
}

func (a *S3Adapter) keyPrefix() string {
	return a.cfg.Prefix + "quotes/"
}

func (a *S3Adapter) key(remoteID string) string {
	return a.keyPrefix() + remoteID + ".json"
}

// Fetch lists every quote object and downloads it. Objects that cannot be
// decoded or carry no text are skipped.
func (a *S3Adapter) Fetch(ctx context.Context) ([]model.Quote, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(a.keyPrefix()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("S3 list objects failed: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".json") {
				keys = append(keys, *obj.Key)
			}
		}
	}

	now := a.clock()
	quotes := make([]model.Quote, 0, len(keys))
	for _, key := range keys {
		obj, err := a.get(ctx, key)
		if err != nil {
			return nil, err
		}

		remoteID := obj.RemoteID
		if remoteID == "" {
			remoteID = strings.TrimSuffix(path.Base(key), ".json")
		}
		text := strings.TrimSpace(obj.Text)
		category := strings.TrimSpace(obj.Category)
		if category == "" {
			category = a.cfg.Category
		}
		if text == "" {
			logging.Debug("dropping remote object without text", logging.Path(key))
			continue
		}

		quotes = append(quotes, resolve(a.resolver, remoteID, model.Fields{
			Text:      text,
			Category:  category,
			UpdatedAt: now,
			Origin:    model.OriginRemote,
		}))
	}
	return quotes, nil
}

func (a *S3Adapter) get(ctx context.Context, key string) (s3Object, error) {
	var obj s3Object
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return obj, fmt.Errorf("S3 get object failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return obj, fmt.Errorf("S3 read body failed: %w", err)
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		logging.Warn("skipping undecodable remote object", logging.Path(key), logging.Err(err))
		return s3Object{}, nil
	}
	return obj, nil
}

// Push writes q as a single object. A quote without a remote id is assigned
// a new one.
func (a *S3Adapter) Push(ctx context.Context, q model.Quote) (string, error) {
	remoteID := q.RemoteID
	if remoteID == "" {
		remoteID = "s3-" + uuid.NewString()
	}

	data, err := json.Marshal(s3Object{RemoteID: remoteID, Text: q.Text, Category: q.Category})
	if err != nil {
		return "", err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(a.key(remoteID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 put object failed: %w", err)
	}
	return remoteID, nil
}
