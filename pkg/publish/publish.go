package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/iWorld-y/post_radar/pkg/model"
)

// PostFileName 本地输出文件名
const PostFileName = "linkedin_post.md"

const maxSlugLength = 50

// Sink 帖子发布目标
type Sink interface {
	// Publish 发布帖子，返回存放位置
	Publish(ctx context.Context, post *model.Post) (string, error)
}

// Render 帖子落盘内容
func Render(post *model.Post) []byte {
	body := post.Final
	if strings.TrimSpace(body) == "" {
		body = post.Draft
	}
	return []byte(strings.TrimSpace(body) + "\n")
}

// FileSink 写入本地目录
type FileSink struct {
	Dir string
}

// NewFileSink 创建本地文件发布目标
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

// Publish 写入 <dir>/linkedin_post.md，已存在时覆盖
func (s *FileSink) Publish(ctx context.Context, post *model.Post) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.Dir, PostFileName)
	if err := os.WriteFile(path, Render(post), 0644); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}
	return path, nil
}

// Slug 把主题转换成对象名片段
func Slug(topic string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			if sb.Len() >= maxSlugLength {
				break
			}
			continue
		}
		dash = true
	}
	if sb.Len() == 0 {
		return "post"
	}
	return sb.String()
}
