package dbinspect

import (
	"strings"
	"unicode"
)

var readOnlyKeywords = []string{"SELECT", "WITH", "VALUES"}

// checkReadOnly accepts a single statement that starts with SELECT, WITH or
// VALUES. A trailing semicolon is allowed. The connection is opened with
// query_only as well, so this is about giving a clear error.
func checkReadOnly(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	body := stripLeadingComments(stmt)

	if end := statementEnd(body); end >= 0 {
		if strings.TrimSpace(stripLeadingComments(body[end+1:])) != "" {
			return "", ErrReadOnlyQuery
		}
		body = body[:end]
	}

	word := firstWord(body)
	for _, kw := range readOnlyKeywords {
		if strings.EqualFold(word, kw) {
			return body, nil
		}
	}
	return "", ErrReadOnlyQuery
}

func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return s
	}
	return s[:end]
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s[2:], "*/")
			if end < 0 {
				return ""
			}
			s = s[end+4:]
		default:
			return s
		}
	}
}

// statementEnd returns the index of the first semicolon outside quotes and
// comments, or -1.
func statementEnd(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '[':
			quote = ']'
		case '-':
			if i+1 < len(s) && s[i+1] == '-' {
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					return -1
				}
				i += nl
			}
		case '/':
			if i+1 < len(s) && s[i+1] == '*' {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return -1
				}
				i += end + 3
			}
		case ';':
			return i
		}
	}
	return -1
}
