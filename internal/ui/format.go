package ui

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	trendUp   = "up"
	trendDown = "down"
)

// formatNumber inserts thousands separators into the integer part of a
// decimal string. Non-numeric input is returned trimmed but otherwise as is.
func formatNumber(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return ""
	}
	sign := ""
	if n[0] == '-' || n[0] == '+' {
		sign, n = n[:1], n[1:]
	}
	intPart, frac := n, ""
	if i := strings.IndexByte(n, '.'); i >= 0 {
		intPart, frac = n[:i], n[i:]
	}
	if intPart == "" || strings.Trim(intPart, "0123456789") != "" {
		return sign + n
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}

// formatInt is formatNumber for integers.
func formatInt(n int64) string {
	return formatNumber(strconv.FormatInt(n, 10))
}

// priceTrend compares the previous close with the current price and returns
// trendUp, trendDown or "" when unchanged or not comparable.
func priceTrend(prev, cur json.Number) string {
	p, err := prev.Float64()
	if err != nil {
		return ""
	}
	c, err := cur.Float64()
	if err != nil {
		return ""
	}
	switch {
	case c > p:
		return trendUp
	case c < p:
		return trendDown
	default:
		return ""
	}
}

// trendArrow returns the marker shown next to a price.
func trendArrow(trend string) string {
	switch trend {
	case trendUp:
		return "▲"
	case trendDown:
		return "▼"
	default:
		return "-"
	}
}
