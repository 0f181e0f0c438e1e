package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

// Enabled reports whether enough is configured to send mail
func (c EmailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.FromEmail != ""
}

// ReceiptLine is one rendered line of a receipt e-mail
type ReceiptLine struct {
	Name     string
	Quantity int
	Total    string
}

// ReceiptEmail carries the pre-formatted figures of a receipt
type ReceiptEmail struct {
	StoreName      string
	CustomerName   string
	ReceiptNumber  string
	TrackingID     string
	IssuedAt       string
	Lines          []ReceiptLine
	SubTotal       string
	DeliveryCharge string
	Discount       string
	Total          string
	PaymentMethod  string
	PaymentStatus  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
	tmpl   *template.Template
	send   sendFunc
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{
		config: config,
		tmpl:   template.Must(template.New("receipt").Parse(receiptTemplate)),
		send:   smtp.SendMail,
	}
}

// SendReceiptEmail mails a receipt to the customer
func (s *EmailService) SendReceiptEmail(ctx context.Context, toEmail string, receipt ReceiptEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, receipt); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Your receipt %s - %s", receipt.ReceiptNumber, receipt.StoreName)
	return s.sendEmail(toEmail, s.buildHTMLEmail(toEmail, subject, body.String()))
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := s.send(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *EmailService) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		to,
		subject,
	)

	return []byte(headers + htmlBody)
}

const receiptTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.ReceiptNumber}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
    <table role="presentation" style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px; border-collapse: collapse;">
        <tr>
            <td style="padding: 30px; text-align: center; background-color: #1a1a2e; color: #ffffff;">
                <h1 style="margin: 0; font-size: 24px;">{{.StoreName}}</h1>
                <p style="margin: 8px 0 0 0;">Receipt {{.ReceiptNumber}}</p>
            </td>
        </tr>
        <tr>
            <td style="padding: 30px; color: #4a5568; font-size: 15px;">
                <p>Hello {{.CustomerName}},</p>
                <p>Thank you for your order{{if .TrackingID}} <strong>{{.TrackingID}}</strong>{{end}}. Issued {{.IssuedAt}}.</p>
                <table role="presentation" style="width: 100%; border-collapse: collapse;">
                    {{range .Lines}}
                    <tr>
                        <td style="padding: 6px 0;">{{.Quantity}} x {{.Name}}</td>
                        <td style="padding: 6px 0; text-align: right;">{{.Total}}</td>
                    </tr>
                    {{end}}
                    <tr><td style="padding-top: 12px;">Subtotal</td><td style="padding-top: 12px; text-align: right;">{{.SubTotal}}</td></tr>
                    <tr><td>Delivery</td><td style="text-align: right;">{{.DeliveryCharge}}</td></tr>
                    <tr><td>Discount</td><td style="text-align: right;">{{.Discount}}</td></tr>
                    <tr><td><strong>Total</strong></td><td style="text-align: right;"><strong>{{.Total}}</strong></td></tr>
                </table>
                <p style="margin-top: 20px;">Payment: {{.PaymentMethod}} ({{.PaymentStatus}})</p>
            </td>
        </tr>
    </table>
</body>
</html>
`
