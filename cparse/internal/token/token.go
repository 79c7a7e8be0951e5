package token

import (
	"fmt"
	"unicode"
)

type Type int

const (
	Ident Type = iota
	Number
	String
	CharLit
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Star
	Ellipsis
	Assign
	Op
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case CharLit:
		return "character"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case Semi:
		return "';'"
	case Comma:
		return "','"
	case Colon:
		return "':'"
	case Star:
		return "'*'"
	case Ellipsis:
		return "'...'"
	case Assign:
		return "'='"
	case Op:
		return "operator"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	File  string
	Line  int
}

var single = map[rune]Type{
	'(': LParen,
	')': RParen,
	'{': LBrace,
	'}': RBrace,
	'[': LBracket,
	']': RBracket,
	';': Semi,
	',': Comma,
	':': Colon,
	'*': Star,
	'=': Assign,
}

// TokenizeLine scans one comment-free logical line of C source. The
// preprocessor strips comments and splices continuations before tokens are
// scanned, so nothing here spans lines.
func TokenizeLine(file string, line int, text string) ([]Token, error) {
	var tokens []Token
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsSpace(r) {
			continue
		}

		if typ, ok := single[r]; ok {
			// '=' may be '==' in a macro body; keep it one token each,
			// the constant evaluator rejects it anyway.
			tokens = append(tokens, Token{string(r), typ, file, line})
			continue
		}

		// Ellipsis
		if r == '.' && i+2 < len(runes) && runes[i+1] == '.' && runes[i+2] == '.' {
			tokens = append(tokens, Token{"...", Ellipsis, file, line})
			i += 2
			continue
		}

		// String literal
		if r == '"' {
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("%s:%d: unterminated string literal", file, line)
			}
			tokens = append(tokens, Token{string(runes[start:i]), String, file, line})
			continue
		}

		// Character literal
		if r == '\'' {
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '\'' {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("%s:%d: unterminated character literal", file, line)
			}
			tokens = append(tokens, Token{string(runes[start:i]), CharLit, file, line})
			continue
		}

		// Number: decimal, octal, hex, float, with C suffixes
		if unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) {
			start := i
			hex := r == '0' && i+1 < len(runes) && (runes[i+1] == 'x' || runes[i+1] == 'X')
			if hex {
				i += 2
			}
			for i < len(runes) {
				c := runes[i]
				switch {
				case unicode.IsDigit(c) || c == '.':
					i++
				case hex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')):
					i++
				case c == 'e' || c == 'E':
					if hex {
						i++
						continue
					}
					i++
					if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
						i++
					}
				case hex && (c == 'p' || c == 'P'):
					i++
					if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
						i++
					}
				case c == 'u' || c == 'U' || c == 'l' || c == 'L' || c == 'f' || c == 'F':
					i++ // suffix
				default:
					goto numDone
				}
			}
		numDone:
			tokens = append(tokens, Token{string(runes[start:i]), Number, file, line})
			i--
			continue
		}

		// Identifier or keyword
		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) {
				c := runes[i]
				if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, file, line})
			i--
			continue
		}

		// Multi-char operators used in constant expressions
		if r == '<' || r == '>' {
			if i+1 < len(runes) && runes[i+1] == r {
				tokens = append(tokens, Token{string([]rune{r, r}), Op, file, line})
				i++
				continue
			}
			tokens = append(tokens, Token{string(r), Op, file, line})
			continue
		}

		switch r {
		case '|', '&', '^', '~', '+', '-', '/', '%', '!', '?':
			tokens = append(tokens, Token{string(r), Op, file, line})
			continue
		}

		return nil, fmt.Errorf("%s:%d: unexpected character %q", file, line, r)
	}

	return tokens, nil
}
