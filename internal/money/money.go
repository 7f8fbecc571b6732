package money

import (
	"fmt"
	"strconv"
	"strings"
)

// All monetary amounts in the system are int64 centavos. Arithmetic on
// centavos is exact; formatting happens only at output boundaries.

// FormatBRL renders centavos as Brazilian currency, e.g. 123456 -> "R$ 1.234,56".
func FormatBRL(centavos int64) string {
	sign := ""
	if centavos < 0 {
		sign = "-"
		centavos = -centavos
	}
	intPart := centavos / 100
	decPart := centavos % 100
	return fmt.Sprintf("%sR$ %s,%02d", sign, groupThousands(intPart), decPart)
}

func groupThousands(value int64) string {
	s := strconv.FormatInt(value, 10)
	var parts []string
	for i := len(s); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		parts = append([]string{s[start:i]}, parts...)
	}
	return strings.Join(parts, ".")
}

// FromFloat converts a two-decimal currency value (e.g. 32.90 read from an
// external document) to centavos, rounding half away from zero.
func FromFloat(v float64) int64 {
	if v < 0 {
		return -int64(-v*100 + 0.5)
	}
	return int64(v*100 + 0.5)
}

// ToFloat converts centavos to a float value for external documents that
// store currency as decimal numbers.
func ToFloat(centavos int64) float64 {
	return float64(centavos) / 100
}
