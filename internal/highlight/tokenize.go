// Package highlight renders serialized JSON with per-token styling for the
// web UI (HTML spans) and the CLI (terminal colours).
package highlight

// Kind classifies a token.
type Kind int

const (
	Plain Kind = iota
	Key
	String
	Number
	Boolean
	Null
)

// String returns the CSS class suffix for the kind.
func (k Kind) String() string {
	switch k {
	case Key:
		return "key"
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Null:
		return "null"
	default:
		return "plain"
	}
}

// Token is a run of text with its classification.
// Concatenating the Text of all tokens reproduces the input.
type Token struct {
	Kind Kind
	Text string
}

// Tokenize splits serialized JSON into classified tokens in a single pass.
// A quoted string followed by optional whitespace and a colon is a Key, and the
// colon belongs to the token. Text matching no class is returned as Plain.
func Tokenize(text string) []Token {
	var tokens []Token
	plainStart := -1

	flush := func(end int) {
		if plainStart >= 0 && end > plainStart {
			tokens = append(tokens, Token{Kind: Plain, Text: text[plainStart:end]})
		}
		plainStart = -1
	}
	emit := func(kind Kind, start, end int) {
		flush(start)
		tokens = append(tokens, Token{Kind: kind, Text: text[start:end]})
	}

	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '"':
			end := scanString(text, i)
			if end < 0 {
				// Unterminated string: leave the remainder unclassified
				if plainStart < 0 {
					plainStart = i
				}
				i = len(text)
				continue
			}
			j := end
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && text[j] == ':' {
				emit(Key, i, j+1)
				i = j + 1
			} else {
				emit(String, i, end)
				i = end
			}

		case c == '-' || isDigit(c):
			if end := scanNumber(text, i); end > i {
				emit(Number, i, end)
				i = end
				continue
			}
			if plainStart < 0 {
				plainStart = i
			}
			i++

		case isWordByte(c):
			end := i
			for end < len(text) && isWordByte(text[end]) {
				end++
			}
			switch text[i:end] {
			case "true", "false":
				emit(Boolean, i, end)
			case "null":
				emit(Null, i, end)
			default:
				if plainStart < 0 {
					plainStart = i
				}
			}
			i = end

		default:
			if plainStart < 0 {
				plainStart = i
			}
			i++
		}
	}
	flush(len(text))

	return tokens
}

// scanString returns the index just past the closing quote of the string
// starting at start, or -1 if it is not terminated.
func scanString(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return -1
}

// scanNumber returns the end of a numeric literal at start, or start if none.
// Grammar: -? digits (. digits*)? ([eE] [+-]? digits)?
func scanNumber(s string, start int) int {
	i := start
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digits {
		return start
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expDigits {
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
