package domain

import "strconv"

// FormatVND renders an amount with dot thousand separators and the đ sign,
// e.g. 180000 -> "180.000đ".
func FormatVND(amount int64) string {
	return GroupThousands(amount) + "đ"
}

func GroupThousands(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return string(out)
}
