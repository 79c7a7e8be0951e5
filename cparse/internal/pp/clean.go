package pp

import "strings"

// stripComments blanks // and /* */ comments while preserving newlines, so
// later line numbers still point at the original file. String and character
// literals pass through untouched.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	runes := []rune(src)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch r {
		case '"', '\'':
			quote := r
			b.WriteRune(r)
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' && i+1 < len(runes) {
					b.WriteRune(runes[i])
					i++
				}
				if runes[i] == '\n' {
					break // unterminated; leave it to the tokenizer to report
				}
				b.WriteRune(runes[i])
				i++
			}
			if i < len(runes) && runes[i] == quote {
				b.WriteRune(quote)
			} else {
				i--
			}

		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				if i < len(runes) {
					b.WriteByte('\n')
				}
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteByte(' ')
				i += 2
				for i < len(runes) {
					if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
						i++
						break
					}
					if runes[i] == '\n' {
						b.WriteByte('\n')
					}
					i++
				}
				continue
			}
			b.WriteRune(r)

		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

type logicalLine struct {
	text string
	num  int // physical line of the first piece
}

// logicalLines splits cleaned source into lines, splicing backslash
// continuations. A spliced line keeps the number of its first physical line.
func logicalLines(src string) []logicalLine {
	physical := strings.Split(src, "\n")
	var out []logicalLine

	for i := 0; i < len(physical); i++ {
		start := i
		text := physical[i]
		for strings.HasSuffix(strings.TrimRight(text, " \t"), "\\") && i+1 < len(physical) {
			text = strings.TrimSuffix(strings.TrimRight(text, " \t"), "\\")
			i++
			text += " " + physical[i]
		}
		out = append(out, logicalLine{text: text, num: start + 1})
	}

	return out
}
