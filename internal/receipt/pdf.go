package receipt

import (
	"bytes"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

const (
	margin    = 15.0
	rowHeight = 8.0
)

// The core PDF fonts only cover Latin-1, so every string drawn here goes
// through ASCII first.
func (r *Renderer) invoice(order domain.ReceiptRequested) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetTitle(ASCII(r.brand.Name)+" invoice "+strconv.FormatInt(order.OrderID, 10), false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetDrawColor(200, 200, 200)
		pageW, _ := pdf.GetPageSize()
		pdf.Line(margin, pdf.GetY(), pageW-margin, pdf.GetY())
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, ASCII("Cảm ơn bạn đã mua hàng tại "+r.brand.Name+". Hóa đơn được tạo tự động."), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	width := pageW - 2*margin

	// Header band.
	pdf.SetFillColor(37, 99, 235)
	pdf.Rect(0, 0, pageW, 34, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(margin, 10)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(width/2, 10, ASCII(r.brand.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(width/2, 10, "HOA DON #"+strconv.FormatInt(order.OrderID, 10), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(margin)
	pdf.CellFormat(width, 7, "Ngay: "+order.Timestamp.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")

	// Customer block.
	pdf.SetTextColor(30, 30, 30)
	pdf.SetY(44)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 7, "THONG TIN KHACH HANG", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	info := order.CustomerInfo
	for _, line := range [][2]string{
		{"Ho ten", info.Name},
		{"MSSV", info.StudentID},
		{"Email", info.Email},
	} {
		pdf.CellFormat(30, 6, line[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(width-30, 6, ASCII(line[1]), "", 1, "L", false, 0, "")
	}
	if info.Note != "" {
		pdf.CellFormat(30, 6, "Ghi chu:", "", 0, "L", false, 0, "")
		pdf.MultiCell(width-30, 6, ASCII(info.Note), "", "L", false)
	}
	pdf.Ln(4)

	// Item table.
	cols := []float64{28, width - 28 - 16 - 38, 16, 38}
	pdf.SetFillColor(241, 245, 249)
	pdf.SetFont("Helvetica", "B", 10)
	for i, title := range []string{"Ma", "San pham", "SL", "Thanh tien"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(cols[i], rowHeight, title, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range order.Items {
		name := item.Name
		if item.Label != "" {
			name += " - " + item.Label
		}
		pdf.CellFormat(cols[0], rowHeight, fit(pdf, ASCII(item.Code), cols[0]), "B", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], rowHeight, fit(pdf, ASCII(name), cols[1]), "B", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], rowHeight, strconv.FormatInt(item.Units(), 10), "B", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], rowHeight, amount(item.Price), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	labelW := width - cols[3]
	pdf.CellFormat(labelW, 7, "Tam tinh", "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3], 7, amount(order.Subtotal), "", 1, "R", false, 0, "")
	if order.DiscountAmount > 0 {
		label := "Giam gia"
		if order.CouponCode != "" {
			label += " (" + ASCII(order.CouponCode) + ")"
		}
		pdf.SetTextColor(22, 163, 74)
		pdf.CellFormat(labelW, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 7, "-"+amount(order.DiscountAmount), "", 1, "R", false, 0, "")
		pdf.SetTextColor(30, 30, 30)
	}
	pdf.Ln(2)

	// Total band.
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(labelW, 10, "TONG THANH TOAN", "", 0, "R", true, 0, "")
	pdf.CellFormat(cols[3], 10, amount(order.Total), "", 1, "R", true, 0, "")
	pdf.Ln(6)

	// Payment instructions.
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 7, "HUONG DAN THANH TOAN", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range [][2]string{
		{"Ngan hang", r.brand.BankName},
		{"So tai khoan", r.brand.BankAccount},
		{"Chu tai khoan", r.brand.AccountHolder},
		{"So tien", amount(order.Total)},
		{"Noi dung CK", PaymentReference(order)},
	} {
		pdf.CellFormat(35, 6, line[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(width-35, 6, ASCII(line[1]), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func amount(v int64) string {
	return domain.GroupThousands(v) + " VND"
}

// fit truncates s with an ellipsis so it fits in a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}
