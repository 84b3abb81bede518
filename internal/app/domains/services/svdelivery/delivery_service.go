package svdelivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/repo/rporder"
	"redaxion/backend/internal/app/infra/mail"
	"redaxion/backend/internal/app/pkg/logger"
)

// maxAttachmentBytes 单个附件体积上限，超限改为在正文中给链接
const maxAttachmentBytes = 20 << 20

// Service 交付服务：产物邮件发送 + 运营通知。
// 幂等依据是订单上的 email_sent 标记：发送前检查、成功后置位，
// 完成回调重复触发时第二次 Deliver 直接短路。
type Service struct {
	orders        rporder.OrderRepository
	mailer        mail.Mailer
	operatorEmail string
	httpc         *http.Client
	logger        logger.Logger
}

// NewService 创建交付服务
func NewService(orders rporder.OrderRepository, mailer mail.Mailer, operatorEmail string, log logger.Logger) *Service {
	return &Service{
		orders:        orders,
		mailer:        mailer,
		operatorEmail: operatorEmail,
		httpc:         &http.Client{Timeout: 60 * time.Second},
		logger:        log,
	}
}

// Deliver 把订单产物通过邮件交付给客户。
// 附件下载失败不阻塞交付：对应产物退化为正文中的下载链接。
func (s *Service) Deliver(ctx context.Context, orderID string) error {
	ctx = logger.WithOrderID(ctx, orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order failed: %w", err)
	}

	if order.EmailSent {
		s.logger.Infof(ctx, "delivery already sent, skipping")
		return nil
	}

	attachments, linkOnly := s.fetchArtifacts(ctx, order.Artifacts)
	subject, body := composeDelivery(order, linkOnly)

	if err := s.mailer.Send(ctx, order.CustomerEmail, subject, body, attachments); err != nil {
		return fmt.Errorf("deliver order failed: %w", err)
	}

	if err := s.orders.MarkEmailSent(ctx, orderID); err != nil {
		// 邮件已出、标记失败：宁可冒重复发送的险也不能丢标记错误
		s.logger.Errorf(ctx, "mark email_sent failed after successful send: %v", err)
		return err
	}

	s.logger.Infof(ctx, "delivery sent to %s, attachments=%d links=%d",
		order.CustomerEmail, len(attachments), len(linkOnly))
	return nil
}

// NotifyOperator 流水线失败时给运营发邮件（尽力而为，失败只记日志）
func (s *Service) NotifyOperator(ctx context.Context, orderID, reason string) {
	if s.operatorEmail == "" {
		return
	}

	subject := fmt.Sprintf("[RedaXion] Pipeline failed for order %s", orderID)
	body := fmt.Sprintf("Order %s failed during processing.\n\nReason: %s\n\nThe order is in ERROR state and can be retried from the admin panel.", orderID, reason)

	if err := s.mailer.Send(ctx, s.operatorEmail, subject, body, nil); err != nil {
		s.logger.Errorf(ctx, "operator notification failed: %v", err)
	}
}

// fetchArtifacts 下载产物做附件，失败或超限的留在 linkOnly 里
func (s *Service) fetchArtifacts(ctx context.Context, artifacts []etorder.Artifact) ([]mail.Attachment, []etorder.Artifact) {
	var attachments []mail.Attachment
	var linkOnly []etorder.Artifact

	for _, art := range artifacts {
		data, err := s.download(ctx, art.URL)
		if err != nil {
			s.logger.Warnf(ctx, "artifact %s not attachable, falling back to link: %v", art.Name, err)
			linkOnly = append(linkOnly, art)
			continue
		}
		attachments = append(attachments, mail.Attachment{
			Filename:    art.Name,
			ContentType: art.ContentType,
			Data:        data,
		})
	}
	return attachments, linkOnly
}

func (s *Service) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", maxAttachmentBytes)
	}
	return data, nil
}

// composeDelivery 生成交付邮件标题与正文（西语面向客户）
func composeDelivery(order *etorder.Order, linkOnly []etorder.Artifact) (string, string) {
	var subject string
	switch order.ServiceType {
	case etorder.ServiceTranscription:
		subject = fmt.Sprintf("Tu transcripción está lista - Pedido %s", order.ID)
	case etorder.ServiceExam:
		subject = fmt.Sprintf("Tu prueba está lista - Pedido %s", order.ID)
	case etorder.ServiceMeeting:
		subject = fmt.Sprintf("Tu acta de reunión está lista - Pedido %s", order.ID)
	default:
		subject = fmt.Sprintf("Tu pedido %s está listo", order.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", order.CustomerName)
	b.WriteString("Tu pedido ha sido procesado con éxito. Encontrarás los archivos adjuntos a este correo.\n")
	if len(linkOnly) > 0 {
		b.WriteString("\nAlgunos archivos superan el límite de adjuntos; puedes descargarlos aquí:\n")
		for _, art := range linkOnly {
			fmt.Fprintf(&b, "  - %s: %s\n", art.Name, art.URL)
		}
	}
	b.WriteString("\nGracias por usar RedaXion.\n")
	return subject, b.String()
}
