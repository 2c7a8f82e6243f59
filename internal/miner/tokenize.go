package miner

import "strings"

// Tokenize splits a message body into whitespace-delimited tokens.
func Tokenize(body string) []string {
	return strings.Fields(body)
}

// hasDigits reports whether a token carries any decimal digit. Such tokens
// are treated as variable during tree routing so identifiers, counters and
// addresses do not explode the tree fan-out.
func hasDigits(tok string) bool {
	for i := 0; i < len(tok); i++ {
		if tok[i] >= '0' && tok[i] <= '9' {
			return true
		}
	}
	return false
}
