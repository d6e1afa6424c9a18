// Package isbn реализует проверку контрольных сумм ISBN-10 и ISBN-13
// и приведение номера к каноническому виду с дефисами.
package isbn

import (
	"strings"
)

// Normalize убирает из номера всё, кроме цифр и символа X.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// Valid проверяет контрольную сумму ISBN-10 (mod 11, X — контрольная цифра 10)
// или ISBN-13 (веса 1 и 3). Номер может содержать дефисы и пробелы.
func Valid(raw string) bool {
	clean := Normalize(raw)
	switch len(clean) {
	case 10:
		return valid10(clean)
	case 13:
		return valid13(clean)
	default:
		return false
	}
}

// Format возвращает канонический вид номера с дефисами
// и false, если контрольная сумма не сходится.
func Format(raw string) (string, bool) {
	clean := Normalize(raw)
	switch {
	case len(clean) == 10 && valid10(clean):
		return clean[0:1] + "-" + clean[1:4] + "-" + clean[4:9] + "-" + clean[9:], true
	case len(clean) == 13 && valid13(clean):
		return clean[0:3] + "-" + clean[3:4] + "-" + clean[4:7] + "-" + clean[7:12] + "-" + clean[12:], true
	default:
		return "", false
	}
}

func valid10(clean string) bool {
	sum := 0
	for i := 0; i < 9; i++ {
		d := int(clean[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		sum += (10 - i) * d
	}
	if clean[9] == 'X' {
		sum += 10
	} else {
		sum += int(clean[9] - '0')
	}
	return sum%11 == 0
}

func valid13(clean string) bool {
	if strings.ContainsRune(clean, 'X') {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(clean[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	check := (10 - sum%10) % 10
	return check == int(clean[12]-'0')
}
