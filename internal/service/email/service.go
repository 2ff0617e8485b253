package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"

	"tusach-congdong/internal/config"
)

// Service delivers the email copy of a notification. Delivery is best
// effort; the dispatcher logs and drops failures.
type Service interface {
	SendNotificationEmail(ctx context.Context, toEmail, recipientName, title, message string, link *string) error
	SendWelcomeEmail(ctx context.Context, toEmail, fullName string) error
}

type service struct {
	client *resend.Client
	config *config.Config
}

func NewService(cfg *config.Config) Service {
	return &service{
		client: resend.NewClient(cfg.ResendAPIKey),
		config: cfg,
	}
}

func (s *service) sendEmail(toEmail, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Tủ Sách Cộng Đồng <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Html:    body,
		Subject: subject,
	}

	_, err := s.client.Emails.Send(params)
	return err
}

func (s *service) SendNotificationEmail(ctx context.Context, toEmail, recipientName, title, message string, link *string) error {
	body := fmt.Sprintf(
		`<p>Chào %s,</p><p><strong>%s</strong></p><p>%s</p>`,
		html.EscapeString(recipientName), html.EscapeString(title), html.EscapeString(message),
	)
	if link != nil && *link != "" {
		body += fmt.Sprintf(`<p><a href="http://%s%s">Xem chi tiết</a></p>`, s.config.Domain, html.EscapeString(*link))
	}

	return s.sendEmail(toEmail, title, body)
}

func (s *service) SendWelcomeEmail(ctx context.Context, toEmail, fullName string) error {
	body := fmt.Sprintf(
		`<p>Chào %s,</p><p>Chào mừng bạn đến với Tủ Sách Cộng Đồng. Hãy thêm cuốn sách đầu tiên của bạn và bắt đầu chia sẻ!</p><p><a href="http://%s/login">Đăng nhập</a></p>`,
		html.EscapeString(fullName), s.config.Domain,
	)

	return s.sendEmail(toEmail, "Chào mừng đến với Tủ Sách Cộng Đồng!", body)
}
