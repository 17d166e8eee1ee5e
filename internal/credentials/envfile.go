package credentials

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// readEnvFile parses the KEY=VALUE file at path. Values are taken literally:
// godotenv would otherwise substitute $NAME and ${NAME} in unquoted and
// double-quoted values. A missing file yields no values.
func readEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return godotenv.Parse(bytes.NewReader(escapeDollars(data)))
}

const (
	scanKey = iota
	scanComment
	scanValueStart
	scanUnquoted
	scanDoubleQuoted
	scanSingleQuoted
	scanTrailer
)

// escapeDollars prefixes every '$' that godotenv would expand with a
// backslash, which godotenv strips again without substituting anything.
// Single-quoted values are never expanded and are copied unchanged, as are
// comment lines.
func escapeDollars(src []byte) []byte {
	out := make([]byte, 0, len(src)+bytes.Count(src, []byte("$")))
	state := scanKey
	lineStart := true

	for i, c := range src {
		prevBackslash := i > 0 && src[i-1] == '\\'

		if c == '\n' && state != scanDoubleQuoted && state != scanSingleQuoted {
			out = append(out, c)
			state = scanKey
			lineStart = true
			continue
		}

		switch state {
		case scanKey:
			switch {
			case lineStart && (c == ' ' || c == '\t'):
			case lineStart && c == '#':
				state = scanComment
			case c == '=' || c == ':':
				state = scanValueStart
				lineStart = false
			default:
				lineStart = false
			}

		case scanValueStart:
			switch c {
			case ' ', '\t':
			case '\'':
				state = scanSingleQuoted
			case '"':
				state = scanDoubleQuoted
			default:
				state = scanUnquoted
				if c == '$' {
					out = append(out, '\\')
				}
			}

		case scanUnquoted:
			if c == '$' {
				out = append(out, '\\')
			}

		case scanDoubleQuoted:
			if c == '$' {
				out = append(out, '\\')
			}
			if c == '"' && !prevBackslash {
				state = scanTrailer
			}

		case scanSingleQuoted:
			if c == '\'' && !prevBackslash {
				state = scanTrailer
			}
		}

		out = append(out, c)
	}
	return out
}
