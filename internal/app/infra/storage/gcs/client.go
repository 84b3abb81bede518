package gcs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"redaxion/backend/internal/app/pkg/logger"
)

// Client Google Cloud Storage JSON API 客户端（media upload）。
// 凭证为预先获取的 OAuth2 access token（部署环境注入）。
type Client struct {
	uploadBase string
	publicBase string
	bucket     string
	token      string
	httpc      *http.Client
	logger     logger.Logger
}

// Config 存储客户端配置
type Config struct {
	UploadBase string // https://storage.googleapis.com/upload/storage/v1
	PublicBase string // https://storage.googleapis.com
	Bucket     string
	Token      string
	Timeout    time.Duration
}

// NewClient 创建存储客户端
func NewClient(cfg *Config, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		uploadBase: cfg.UploadBase,
		publicBase: cfg.PublicBase,
		bucket:     cfg.Bucket,
		token:      cfg.Token,
		httpc:      &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Upload 上传对象，返回可访问 URL
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/b/%s/o?uploadType=media&name=%s",
		c.uploadBase, c.bucket, url.QueryEscape(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("gcs upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gcs upload status=%d", resp.StatusCode)
	}

	publicURL := fmt.Sprintf("%s/%s/%s", c.publicBase, c.bucket, path)
	c.logger.Infof(ctx, "uploaded object %s (%d bytes)", path, len(data))
	return publicURL, nil
}
