package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/iWorld-y/post_radar/pkg/config"
	"github.com/iWorld-y/post_radar/pkg/logger"
	"github.com/iWorld-y/post_radar/pkg/model"
)

const markdownContentType = "text/markdown; charset=utf-8"

type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink 把帖子归档到对象存储
type MinioSink struct {
	client objectPutter
	bucket string
	newID  func() string
}

// NewMinioSink 连接 MinIO，桶不存在时自动创建
func NewMinioSink(ctx context.Context, cfg config.MinioConfig) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		logger.Log.Infof("已创建存储桶: %s", cfg.Bucket)
	}

	return &MinioSink{client: client, bucket: cfg.Bucket, newID: uuid.NewString}, nil
}

// ObjectKey 对象名：posts/<日期>/<slug>-<id 前 8 位>.md
func ObjectKey(post *model.Post, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	created := post.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return fmt.Sprintf("posts/%s/%s-%s.md", created.Format(time.DateOnly), Slug(post.Topic), id)
}

// Publish 上传帖子，返回 bucket/key
func (s *MinioSink) Publish(ctx context.Context, post *model.Post) (string, error) {
	key := ObjectKey(post, s.newID())
	data := Render(post)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: markdownContentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio upload %s: %w", key, err)
	}
	return s.bucket + "/" + key, nil
}
