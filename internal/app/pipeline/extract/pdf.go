package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"redaxion/backend/internal/app/pkg/logger"
)

// maxDocumentBytes 上传讲义的大小上限（50MB）
const maxDocumentBytes = 50 << 20

// PDFExtractor 下载上传的 PDF 讲义并逐页提取纯文本
type PDFExtractor struct {
	httpc  *http.Client
	logger logger.Logger
}

// NewPDFExtractor 创建 PDF 文本提取器
func NewPDFExtractor(log logger.Logger) *PDFExtractor {
	return &PDFExtractor{
		httpc:  &http.Client{Timeout: 60 * time.Second},
		logger: log,
	}
}

// ExtractText 下载并提取 PDF 全文
func (e *PDFExtractor) ExtractText(ctx context.Context, documentURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("download document failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download document status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read document failed: %w", err)
	}

	return extractFromBytes(data)
}

// extractFromBytes 逐页提取文本
func extractFromBytes(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}

	var sb strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		p := reader.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d failed: %w", pageIndex, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return sb.String(), nil
}
