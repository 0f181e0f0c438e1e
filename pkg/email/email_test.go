package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
)

func TestSendReceiptEmail(t *testing.T) {
	svc := NewEmailService(EmailConfig{
		SMTPHost:  "smtp.test",
		SMTPPort:  2525,
		FromName:  "Storefront",
		FromEmail: "shop@storefront.test",
	})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		if a != nil {
			t.Errorf("expected no auth without username")
		}
		return nil
	}

	err := svc.SendReceiptEmail(context.Background(), "buyer@example.com", ReceiptEmail{
		StoreName:     "Storefront",
		CustomerName:  "Rahim <script>",
		ReceiptNumber: "RCP-000042",
		Lines:         []ReceiptLine{{Name: "Tea", Quantity: 2, Total: "200.00"}},
		Total:         "280.00",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.test:2525" || len(gotTo) != 1 || gotTo[0] != "buyer@example.com" {
		t.Fatalf("unexpected envelope %s %v", gotAddr, gotTo)
	}
	for _, want := range []string{"Subject: Your receipt RCP-000042 - Storefront", "2 x Tea", "280.00", "Rahim &lt;script&gt;"} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q", want)
		}
	}
}

func TestEnabled(t *testing.T) {
	if (EmailConfig{}).Enabled() {
		t.Fatalf("empty config must be disabled")
	}
	if !(EmailConfig{SMTPHost: "h", FromEmail: "f@x"}).Enabled() {
		t.Fatalf("expected config with host and sender to be enabled")
	}
}
