package config

import (
	"bytes"
	"encoding/json"
)

// StripJSONComments removes // line comments and /* block */ comments from a
// JSONC document so it can be parsed as plain JSON. Comment markers inside
// string literals are preserved. Stripped characters are replaced with spaces
// (newlines kept) so decoder error offsets still point at the source.
func StripJSONComments(src string) string {
	var out bytes.Buffer
	out.Grow(len(src))

	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)
	state := stateCode
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case stateCode:
			switch {
			case c == '"':
				state = stateString
				out.WriteByte(c)
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = stateLineComment
				out.WriteString("  ")
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = stateBlockComment
				out.WriteString("  ")
				i++
			default:
				out.WriteByte(c)
			}
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				state = stateCode
			}
		case stateLineComment:
			if c == '\n' {
				state = stateCode
				out.WriteByte(c)
			} else {
				out.WriteByte(' ')
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				state = stateCode
				out.WriteString("  ")
				i++
			} else if c == '\n' {
				out.WriteByte(c)
			} else {
				out.WriteByte(' ')
			}
		}
	}
	return out.String()
}

func decodeJSONC(data []byte, dst interface{}) error {
	return json.Unmarshal([]byte(StripJSONComments(string(data))), dst)
}

func encodeJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
