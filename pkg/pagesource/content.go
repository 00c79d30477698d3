package pagesource

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/textlayer"
)

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// parseContentStream walks the content stream operators line by line and
// emits a positioned fragment for each text-showing operator. The text
// matrix is tracked just enough for line reconstruction: Tm sets an
// absolute position, Td/TD translate it, T* and ' advance to the next line
// using the current leading.
func parseContentStream(data []byte) []textlayer.Fragment {
	var frags []textlayer.Fragment

	x, y := 0.0, 0.0
	leading := 12.0

	emit := func(line []byte) {
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			text := decodePDFString(m[1])
			if strings.TrimSpace(text) == "" {
				continue
			}
			frags = append(frags, textlayer.Fragment{Text: text, X: x, Y: y})
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tm")):
			// a b c d e f Tm — e and f are the absolute position.
			if nums := trailingNumbers(line, 6); len(nums) == 6 {
				x, y = nums[4], nums[5]
			}

		case bytes.HasSuffix(line, []byte("TD")):
			if nums := trailingNumbers(line, 2); len(nums) == 2 {
				x += nums[0]
				y += nums[1]
				if nums[1] != 0 {
					leading = -nums[1]
				}
			}

		case bytes.HasSuffix(line, []byte("Td")):
			if nums := trailingNumbers(line, 2); len(nums) == 2 {
				x += nums[0]
				y += nums[1]
			}

		case bytes.HasSuffix(line, []byte("TL")):
			if nums := trailingNumbers(line, 1); len(nums) == 1 {
				leading = nums[0]
			}

		case bytes.Equal(line, []byte("T*")):
			y -= leading

		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			emit(line)

		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			y -= leading
			emit(line)
		}
	}

	return frags
}

// trailingNumbers parses up to n numeric operands preceding the operator at
// the end of the line.
func trailingNumbers(line []byte, n int) []float64 {
	fields := strings.Fields(string(line))
	if len(fields) < n+1 {
		return nil
	}
	nums := make([]float64, 0, n)
	for _, f := range fields[len(fields)-1-n : len(fields)-1] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		nums = append(nums, v)
	}
	return nums
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}
