// Package email delivers HTML mail. The relay service accepts messages over
// HTTP and hands them to SMTP; other services talk to it through Client.
package email

import (
	"context"
	"net/mail"
	"strings"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

type Message struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate reports the first problem that would make msg undeliverable.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return domain.NewValidationError("to", "Địa chỉ email người nhận không hợp lệ")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return domain.NewValidationError("subject", "Thiếu tiêu đề email")
	}
	if strings.TrimSpace(m.HTML) == "" {
		return domain.NewValidationError("html", "Thiếu nội dung email")
	}
	for _, a := range m.Attachments {
		if a.Filename == "" || len(a.Content) == 0 {
			return domain.NewValidationError("attachments", "Tệp đính kèm không hợp lệ")
		}
	}
	return nil
}
