package common

import "strings"

// EqualFoldAny returns true if s equals any of the candidates under Unicode case folding.
func EqualFoldAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}
