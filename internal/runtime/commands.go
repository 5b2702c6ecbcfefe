package runtime

import (
	"strings"

	"github.com/aretw0/firstaid/pkg/input"
)

var (
	resetCommands = []string{"iniciar", "empezar", "reset", "reiniciar", "comenzar", "start over"}
	nextCommands  = []string{"siguiente paso", "siguiente", "next step", "next"}
	helpCommands  = []string{"ayuda", "help", "lista", "list"}
)

// phrase renders the folded words of text joined by single spaces.
func phrase(text string) string {
	return strings.Join(input.Words(text), " ")
}

func exactly(text string, commands []string) bool {
	p := phrase(text)
	for _, c := range commands {
		if p == c {
			return true
		}
	}
	return false
}

// IsReset reports whether the whole message asks to start over. It wins in
// any state; "sí, voy a comenzar a presionar" is an answer, not a reset.
func IsReset(text string) bool {
	return exactly(text, resetCommands)
}

// IsNextStep reports whether the message asks for the following step.
func IsNextStep(text string) bool {
	return exactly(text, nextCommands)
}

// IsHelp reports whether the whole message is a request for the emergency list.
// "necesito ayuda, se atraganta" is a description, not a help request.
func IsHelp(text string) bool {
	return exactly(text, helpCommands)
}
