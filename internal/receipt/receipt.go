// Package receipt renders the invoice PDF and notification mails sent after
// an order is placed.
package receipt

import (
	"fmt"
	"html/template"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Branding struct {
	Name          string
	BankName      string
	BankAccount   string
	AccountHolder string
}

type Rendered struct {
	PDF             []byte
	Attachment      string
	CustomerSubject string
	CustomerHTML    string
	AdminSubject    string
	AdminHTML       string
}

type Renderer struct {
	brand     Branding
	templates *template.Template
	compress  bool
}

func NewRenderer(brand Branding) *Renderer {
	return &Renderer{
		brand:     brand,
		templates: mustParseTemplates(),
		compress:  true,
	}
}

// AttachmentName is the file name of the invoice attached to the mails.
func AttachmentName(orderID int64) string {
	return "invoice-" + strconv.FormatInt(orderID, 10) + ".pdf"
}

// PaymentReference is the bank transfer memo customers are asked to use.
func PaymentReference(order domain.ReceiptRequested) string {
	return fmt.Sprintf("%d %s", order.OrderID, order.CustomerInfo.StudentID)
}

func (r *Renderer) Render(order domain.ReceiptRequested) (*Rendered, error) {
	pdf, err := r.invoice(order)
	if err != nil {
		return nil, errors.Wrap(err, "render invoice")
	}

	v := newView(r.brand, order)
	customer, err := r.execute("customer", v)
	if err != nil {
		return nil, errors.Wrap(err, "render customer mail")
	}
	admin, err := r.execute("admin", v)
	if err != nil {
		return nil, errors.Wrap(err, "render admin mail")
	}

	return &Rendered{
		PDF:             pdf,
		Attachment:      AttachmentName(order.OrderID),
		CustomerSubject: fmt.Sprintf("Xác nhận đơn hàng #%d - %s", order.OrderID, r.brand.Name),
		CustomerHTML:    customer,
		AdminSubject:    fmt.Sprintf("[%s] Đơn hàng mới #%d - %s", r.brand.Name, order.OrderID, domain.FormatVND(order.Total)),
		AdminHTML:       admin,
	}, nil
}
