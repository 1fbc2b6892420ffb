package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reportify/internal/blocks"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3BlockSink persists parsed structured blocks to an S3-compatible object
// store, one JSON object per block. The stored object key doubles as the
// block's identity downstream.
type S3BlockSink struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3BlockSink(cfg S3Config) (*S3BlockSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3BlockSink{client: client, bucket: bucket, region: region}, nil
}

func (s *S3BlockSink) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("sink is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// ForRun scopes the sink to one generation run. The returned value
// implements blocks.Sink.
func (s *S3BlockSink) ForRun(runID string) blocks.Sink {
	return &runSink{store: s, runID: strings.TrimSpace(runID)}
}

type runSink struct {
	store *S3BlockSink
	runID string
}

func (r *runSink) Persist(ctx context.Context, b blocks.Block) (string, error) {
	if r.runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if err := r.store.ensureBucket(ctx); err != nil {
		return "", err
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal block: %w", err)
	}
	key := fmt.Sprintf("runs/%s/blocks/%s.json", r.runID, b.ID)
	_, err = r.store.client.PutObject(ctx, r.store.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("put block object: %w", err)
	}
	return key, nil
}
