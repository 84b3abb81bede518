package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"redaxion/backend/internal/app/pkg/logger"
)

// Client AssemblyAI 风格的转写客户端：提交任务后轮询直到完成。
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpc        *http.Client
	logger       logger.Logger
}

// Config 转写客户端配置
type Config struct {
	BaseURL      string // https://api.assemblyai.com/v2
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewClient 创建转写客户端
func NewClient(cfg *Config, log logger.Logger) *Client {
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 10 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
		httpc:        &http.Client{Timeout: timeout},
		logger:       log,
	}
}

type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued / processing / completed / error
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe 提交音频并轮询结果，ctx 取消时中止
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	if language == "" {
		language = "es"
	}

	transcriptID, err := c.submit(ctx, audioURL, language)
	if err != nil {
		return "", fmt.Errorf("submit transcription failed: %w", err)
	}
	c.logger.Infof(ctx, "transcription submitted, transcript_id=%s", transcriptID)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			result, err := c.fetch(ctx, transcriptID)
			if err != nil {
				return "", fmt.Errorf("poll transcription failed: %w", err)
			}
			switch result.Status {
			case "completed":
				return result.Text, nil
			case "error":
				return "", fmt.Errorf("transcription failed: %s", result.Error)
			}
			// queued / processing：继续等
		}
	}
}

// submit 提交转写任务
func (c *Client) submit(ctx context.Context, audioURL, language string) (string, error) {
	payload, err := json.Marshal(submitRequest{AudioURL: audioURL, LanguageCode: language})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcriber submit status=%d", resp.StatusCode)
	}

	var created transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// fetch 查询转写状态
func (c *Client) fetch(ctx context.Context, transcriptID string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transcript/"+transcriptID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcriber fetch status=%d", resp.StatusCode)
	}

	var result transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
