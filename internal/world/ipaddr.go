package world

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIPv4 converts an IPv4-shaped dotted-quad string into its numeric
// form. Computers store both forms; the numeric form backs the constant-
// time index, the text form backs the linear lookup.
func ParseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var out uint32
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		out = out<<8 | uint32(n)
	}
	return out, true
}

// FormatIPv4 renders a numeric address back to dotted-quad form.
func FormatIPv4(ip uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}
