package step

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKeyword
	tokInstance // #123
	tokInteger
	tokReal
	tokString
	tokEnum   // .T.
	tokBinary // "0FF"
	tokUnset  // $
	tokDerived
	tokLParen
	tokRParen
	tokComma
	tokEquals
	tokSemicolon
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokKeyword:
		return "keyword"
	case tokInstance:
		return "instance name"
	case tokInteger:
		return "integer"
	case tokReal:
		return "real"
	case tokString:
		return "string"
	case tokEnum:
		return "enumeration"
	case tokBinary:
		return "binary"
	case tokUnset:
		return "'$'"
	case tokDerived:
		return "'*'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokEquals:
		return "'='"
	case tokSemicolon:
		return "';'"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits an exchange structure into tokens. Whitespace and /* */ comments are skipped.
type lexer struct {
	src  []byte
	pos  int
	line int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", l.line, fmt.Sprintf(format, args...))
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			end := strings.Index(string(l.src[l.pos+2:]), "*/")
			if end < 0 {
				return l.errorf("unterminated comment")
			}
			comment := l.src[l.pos : l.pos+2+end+2]
			l.line += strings.Count(string(comment), "\n")
			l.pos += len(comment)
		default:
			return nil
		}
	}
	return nil
}

func isKeywordChar(c byte) bool {
	return c == '_' || c == '-' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	single := func(k tokenKind) (token, error) {
		l.pos++
		return token{kind: k, text: string(c), line: l.line}, nil
	}

	switch {
	case c == '(':
		return single(tokLParen)
	case c == ')':
		return single(tokRParen)
	case c == ',':
		return single(tokComma)
	case c == '=':
		return single(tokEquals)
	case c == ';':
		return single(tokSemicolon)
	case c == '$':
		return single(tokUnset)
	case c == '*':
		return single(tokDerived)
	case c == '#':
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == start+1 {
			return token{}, l.errorf("expected digits after '#'")
		}
		return token{kind: tokInstance, text: string(l.src[start+1 : l.pos]), line: l.line}, nil
	case c == '\'':
		return l.lexString()
	case c == '"':
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated binary literal")
		}
		l.pos++
		return token{kind: tokBinary, text: string(l.src[start+1 : l.pos-1]), line: l.line}, nil
	case c == '.' && l.pos+1 < len(l.src) && !isDigit(l.src[l.pos+1]):
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '.' {
			if !isKeywordChar(l.src[l.pos]) {
				return token{}, l.errorf("invalid character %q in enumeration", l.src[l.pos])
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated enumeration")
		}
		l.pos++
		return token{kind: tokEnum, text: strings.ToUpper(string(l.src[start+1 : l.pos-1])), line: l.line}, nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return l.lexNumber()
	case isKeywordChar(c):
		for l.pos < len(l.src) && isKeywordChar(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokKeyword, text: strings.ToUpper(string(l.src[start:l.pos])), line: l.line}, nil
	}
	return token{}, l.errorf("unexpected character %q", c)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	isReal := false
scan:
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; {
		case isDigit(c):
			l.pos++
		case c == '.':
			isReal = true
			l.pos++
		case c == 'E' || c == 'e':
			isReal = true
			l.pos++
			if l.pos < len(l.src) && (l.src[l.pos] == '-' || l.src[l.pos] == '+') {
				l.pos++
			}
		default:
			break scan
		}
	}
	text := string(l.src[start:l.pos])
	if isReal {
		return token{kind: tokReal, text: text, line: l.line}, nil
	}
	if text == "-" || text == "+" {
		return token{}, l.errorf("dangling sign")
	}
	return token{kind: tokInteger, text: text, line: l.line}, nil
}

func (l *lexer) lexString() (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf("unterminated string")
		}
		c := l.src[l.pos]
		if c == '\n' {
			l.line++
		}
		if c == '\'' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				sb.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{kind: tokString, text: decodeString(sb.String()), line: l.line}, nil
}

// decodeString resolves the \X\hh, \X2\hhhh...\X0\ and \\ control directives.
// Unknown directives are kept verbatim.
func decodeString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], `\\`):
			sb.WriteByte('\\')
			i += 2
		case strings.HasPrefix(s[i:], `\X\`) && i+5 <= len(s):
			if v, err := strconv.ParseUint(s[i+3:i+5], 16, 8); err == nil {
				sb.WriteRune(rune(v))
				i += 5
				continue
			}
			sb.WriteByte(s[i])
			i++
		case strings.HasPrefix(s[i:], `\X2\`) || strings.HasPrefix(s[i:], `\X4\`):
			width := 4
			if s[i+2] == '4' {
				width = 8
			}
			end := strings.Index(s[i+4:], `\X0\`)
			if end < 0 {
				sb.WriteByte(s[i])
				i++
				continue
			}
			hex := s[i+4 : i+4+end]
			for j := 0; j+width <= len(hex); j += width {
				if v, err := strconv.ParseUint(hex[j:j+width], 16, 32); err == nil {
					sb.WriteRune(rune(v))
				}
			}
			i += 4 + end + 4
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String()
}
