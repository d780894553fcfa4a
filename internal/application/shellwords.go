package application

import (
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
)

// shellOperators are the runes that end a word even when unquoted and
// unspaced, as in "uname -a;id".
const shellOperators = ";&|<>()"

// shellTokenizer splits like the default POSIX tokenizer but treats shell
// operators as separate tokens instead of word characters.
type shellTokenizer struct {
	shlex.DefaultTokenizer
}

func (*shellTokenizer) IsWord(r rune) bool {
	switch {
	case unicode.IsSpace(r), r == '\'', r == '"', r == '\\':
		return false
	default:
		return !strings.ContainsRune(shellOperators, r)
	}
}

// splitCommand tokenizes cmdline the way a shell lexer does: comments are
// dropped and every operator is its own token. Unbalanced quotes and a
// trailing escape are reported as errors.
func splitCommand(cmdline string) ([]string, error) {
	lexer := shlex.NewLexerString(stripComment(cmdline), true, false)
	lexer.SetTokenizer(&shellTokenizer{})
	return lexer.Split()
}

// stripComment cuts cmdline at the first unquoted '#' that starts a word.
func stripComment(cmdline string) string {
	var quote rune
	escaped := false
	wordStart := true
	for i, r := range cmdline {
		switch {
		case escaped:
			escaped = false
			wordStart = false
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			}
		case r == '\\':
			escaped = true
		case r == '\'' || r == '"':
			quote = r
		case r == '#' && wordStart:
			return cmdline[:i]
		}
		wordStart = quote == 0 && !escaped && (unicode.IsSpace(r) || strings.ContainsRune(shellOperators, r))
	}
	return cmdline
}
