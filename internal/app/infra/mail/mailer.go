package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gomail "gopkg.in/gomail.v2"

	"redaxion/backend/internal/app/pkg/logger"
)

// Attachment 邮件附件（字节内容，不依赖本地文件系统）
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, attachments []Attachment) error
}

// SMTPMailer SMTP 邮件实现（gomail）
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger logger.Logger
}

// Config SMTP 配置
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPMailer 创建 SMTP 邮件客户端
func NewSMTPMailer(cfg *Config, log logger.Logger) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: log,
	}
}

// Send 发送带附件邮件
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string, attachments []Attachment) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, att := range attachments {
		data := att.Data
		msg.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(data))
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}),
		)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s failed: %w", to, err)
	}
	m.logger.Infof(ctx, "mail sent to %s, subject=%q, attachments=%d", to, subject, len(attachments))
	return nil
}
