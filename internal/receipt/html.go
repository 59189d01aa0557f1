package receipt

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var vietnam = time.FixedZone("ICT", 7*60*60)

func mustParseTemplates() *template.Template {
	return template.Must(template.New("receipt").Funcs(template.FuncMap{
		"vnd": domain.FormatVND,
		"datetime": func(t time.Time) string {
			return t.In(vietnam).Format("15:04 02/01/2006")
		},
	}).ParseFS(templateFS, "templates/*.html"))
}

type line struct {
	Code     string
	Name     string
	Label    string
	Quantity int64
	Price    int64
}

type view struct {
	Brand     Branding
	Order     domain.ReceiptRequested
	Lines     []line
	Reference string
}

func newView(brand Branding, order domain.ReceiptRequested) view {
	lines := make([]line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, line{
			Code:     item.Code,
			Name:     item.Name,
			Label:    item.Label,
			Quantity: item.Units(),
			Price:    item.Price,
		})
	}
	return view{Brand: brand, Order: order, Lines: lines, Reference: PaymentReference(order)}
}

func (r *Renderer) execute(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
