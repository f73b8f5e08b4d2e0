package parser

import (
	"bytes"

	"github.com/wotpp/wotpp/internal/diag"
	"github.com/wotpp/wotpp/internal/token"
)

// decodeParagraph implements the "p" smart-string post-processor: collapse
// consecutive whitespace to a single space, map all whitespace to space,
// and strip exactly one leading and one trailing whitespace byte.
func decodeParagraph(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	prevSpace := false
	for _, c := range raw {
		if isSpaceByte(c) {
			if !prevSpace {
				out = append(out, ' ')
			}
			prevSpace = true
			continue
		}
		out = append(out, c)
		prevSpace = false
	}
	if len(out) > 0 && out[0] == ' ' {
		out = out[1:]
	}
	if len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return out
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// decodeCode implements the "c" smart-string post-processor: trim trailing
// whitespace, trim a single leading newline, discover the minimum
// indentation across non-blank lines, and strip that common indent from
// every line.
func decodeCode(raw []byte) []byte {
	content := raw
	if len(content) > 0 && content[0] == '\n' {
		content = content[1:]
	}
	content = bytes.TrimRight(content, " \t\r\n")

	lines := bytes.Split(content, []byte("\n"))
	minIndent := -1
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		indent := 0
		for indent < len(line) && (line[indent] == ' ' || line[indent] == '\t') {
			indent++
		}
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent < 0 {
		minIndent = 0
	}

	for i, line := range lines {
		strip := 0
		for strip < len(line) && strip < minIndent && (line[strip] == ' ' || line[strip] == '\t') {
			strip++
		}
		lines[i] = line[strip:]
	}
	return bytes.Join(lines, []byte("\n"))
}

func isHexDigitByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexDigitVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isBinDigitByte(c byte) bool { return c == '0' || c == '1' }

// decodeDigits implements the hex/bin string post-processor: digits are
// read right-to-left (ignoring '_'), every groupSize digits produce one
// byte, and the resulting byte sequence is reversed to restore natural
// order. Grouping from the right means a partial leading group zero-pads
// the most significant byte.
func decodeDigits(raw []byte, pos token.Position, hex bool) ([]byte, error) {
	groupSize := 2
	valid := isHexDigitByte
	if !hex {
		groupSize = 8
		valid = isBinDigitByte
	}

	digits := make([]byte, 0, len(raw))
	for _, c := range raw {
		if c == '_' {
			continue
		}
		if !valid(c) {
			kind := "hex"
			if !hex {
				kind = "bin"
			}
			return nil, diag.New(diag.Lex, pos, "invalid %s digit %q", kind, c)
		}
		digits = append(digits, c)
	}

	reverseBytes(digits)

	var out []byte
	for i := 0; i < len(digits); i += groupSize {
		end := i + groupSize
		if end > len(digits) {
			end = len(digits)
		}
		chunk := append([]byte(nil), digits[i:end]...)
		reverseBytes(chunk)
		for len(chunk) < groupSize {
			chunk = append([]byte{'0'}, chunk...)
		}
		if hex {
			out = append(out, hexDigitVal(chunk[0])<<4|hexDigitVal(chunk[1]))
		} else {
			var v byte
			for _, c := range chunk {
				v = v<<1 | (c - '0')
			}
			out = append(out, v)
		}
	}
	reverseBytes(out)
	return out, nil
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
