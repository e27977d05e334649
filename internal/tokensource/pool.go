package tokensource

import (
	"strings"
)

// SplitTokens parses an Authorization header value of the form
// "Bearer tok1,tok2" into its non-empty tokens. The scheme is optional.
func SplitTokens(header string) []string {
	value := strings.TrimSpace(header)
	scheme, rest, _ := strings.Cut(value, " ")
	if strings.EqualFold(scheme, "Bearer") {
		value = rest
	}

	var tokens []string
	for tok := range strings.SplitSeq(value, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Pick selects one token uniformly at random using intn, which must return
// a value in [0, n). It returns "" when tokens is empty.
func Pick(tokens []string, intn func(n int) int) string {
	if len(tokens) == 0 {
		return ""
	}
	return tokens[intn(len(tokens))]
}
