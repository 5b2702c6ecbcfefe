package runtime

import (
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/aretw0/firstaid/pkg/input"
)

// Tokens are compared after folding, so "sí" matches "si".
var (
	affirmative = map[string]bool{
		"si":         true,
		"yes":        true,
		"claro":      true,
		"correcto":   true,
		"afirmativo": true,
		"sip":        true,
	}
	negative = map[string]bool{
		"no":       true,
		"not":      true,
		"nope":     true,
		"negativo": true,
	}
)

// DetectAnswer reads a yes/no answer. Affirmative tokens are checked first,
// so "sí, pero no mucho" is YES. It reports false when neither is present.
func DetectAnswer(text string) (domain.Branch, bool) {
	words := input.Words(text)
	for _, w := range words {
		if affirmative[w] {
			return domain.BranchYes, true
		}
	}
	for _, w := range words {
		if negative[w] {
			return domain.BranchNo, true
		}
	}
	return "", false
}
