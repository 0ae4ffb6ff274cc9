package httpapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// formatValue renders a panel value for display using pt-BR conventions,
// e.g. 5400.3 BRL -> "R$ 5.400,30".
func formatValue(unit string, value float64) string {
	switch unit {
	case "BRL":
		return "R$ " + formatPtBR(value, 2)
	case "USD":
		return "US$ " + formatPtBR(value, 2)
	case "pts":
		return formatPtBR(value, 0)
	case "% a.a.":
		return formatPtBR(value, 2) + "% a.a."
	default:
		return formatPtBR(value, 2)
	}
}

// formatPtBR renders a number with '.' thousands separators and a ','
// decimal separator.
func formatPtBR(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "-"
	}

	negative := value < 0
	text := strconv.FormatFloat(math.Abs(value), 'f', decimals, 64)

	intPart := text
	fracPart := ""
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		intPart = text[:idx]
		fracPart = text[idx+1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".")
	if fracPart != "" {
		out = fmt.Sprintf("%s,%s", out, fracPart)
	}
	if negative {
		out = "-" + out
	}
	return out
}
