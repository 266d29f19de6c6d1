package snippet

import "strings"

// Token is one piece of snippet text: either a literal run or a
// placeholder such as {now} or {now:HH:mm}.
type Token struct {
	Placeholder bool
	// Raw is the literal text, or the placeholder exactly as written.
	Raw       string
	Name      string
	Format    string
	HasFormat bool
}

// Lex splits s into literal and placeholder tokens in a single left-to-right
// pass. A '{' that does not open a well-formed placeholder is literal text.
func Lex(s string) []Token {
	var (
		toks []Token
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, Token{Raw: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		if s[i] == '{' {
			if tok, n, ok := placeholderAt(s[i:]); ok {
				flush()
				toks = append(toks, tok)
				i += n
				continue
			}
		}
		lit.WriteByte(s[i])
		i++
	}
	flush()
	return toks
}

// placeholderAt parses {name} or {name:format} at the start of s and
// returns the token and its byte length.
func placeholderAt(s string) (Token, int, bool) {
	i := 1
	for i < len(s) && isNameByte(s[i]) {
		i++
	}
	if i == 1 || i >= len(s) {
		return Token{}, 0, false
	}
	name := s[1:i]

	switch s[i] {
	case '}':
		return Token{Placeholder: true, Raw: s[:i+1], Name: name}, i + 1, true
	case ':':
		end := strings.IndexByte(s[i+1:], '}')
		if end <= 0 {
			return Token{}, 0, false
		}
		n := i + 1 + end + 1
		return Token{
			Placeholder: true,
			Raw:         s[:n],
			Name:        name,
			Format:      s[i+1 : i+1+end],
			HasFormat:   true,
		}, n, true
	}
	return Token{}, 0, false
}

func isNameByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
