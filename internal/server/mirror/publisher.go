// Package mirror publishes sealed bulletin bundles to S3-compatible object
// storage whenever the lifecycle asks for a sync.
package mirror

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// Config points the publisher at a bucket. An empty Bucket disables it.
type Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
}

type Store interface {
	VisitAllBulletinRevisions(ctx context.Context, fn func(bulletin.DatabaseKey) error) error
	ExportBundle(ctx context.Context, key bulletin.DatabaseKey, w io.Writer) error
}

type Publisher struct {
	cfg    Config
	store  Store
	logger logging.Logger

	mu        sync.Mutex
	published map[bulletin.DatabaseKey]struct{}
}

func NewPublisher(cfg Config, store Store, l logging.Logger) *Publisher {
	return &Publisher{
		cfg:       cfg,
		store:     store,
		logger:    l.With("module", "mirror"),
		published: make(map[bulletin.DatabaseKey]struct{}),
	}
}

// ObjectKey is where the sealed bundle for uid is stored in the bucket.
func ObjectKey(uid bulletin.UniversalID) string {
	account := hex.EncodeToString(cryptox.Digest([]byte(uid.AccountID))[:16])
	return fmt.Sprintf("bulletins/%s/%s.zip", account, uid.LocalID)
}

func (p *Publisher) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.AccessKey,
			p.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// Sync uploads every sealed bundle not yet published by this process.
func (p *Publisher) Sync(ctx context.Context) error {
	if p.cfg.Bucket == "" {
		p.logger.Debug(ctx, "sync skipped, no bucket configured")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var pending []bulletin.DatabaseKey
	err := p.store.VisitAllBulletinRevisions(ctx, func(key bulletin.DatabaseKey) error {
		if !key.IsSealed() {
			return nil
		}
		if _, ok := p.published[key]; !ok {
			pending = append(pending, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list bulletins: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	c, err := p.client(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	for _, key := range pending {
		var buf bytes.Buffer
		if err := p.store.ExportBundle(ctx, key, &buf); err != nil {
			return fmt.Errorf("export %s: %w", key.UID, err)
		}
		objectKey := ObjectKey(key.UID)
		_, err := putObject(c, ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.cfg.Bucket),
			Key:         aws.String(objectKey),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/zip"),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", objectKey, err)
		}
		p.published[key] = struct{}{}
	}
	p.logger.Info(ctx, "bulletins published", "count", len(pending), "bucket", p.cfg.Bucket)
	return nil
}
