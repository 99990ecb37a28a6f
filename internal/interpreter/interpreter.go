// Package interpreter turns chat messages into transaction intents.
//
// Grammars are tried in order and the first match wins. The sentence forms
// come before the comma form so conversational text is never split on commas.
package interpreter

import "flowerbot/internal/core"

// Grammar is a single pure matcher.
type Grammar struct {
	Name  string
	Match func(text string) (core.Intent, bool)
}

type Interpreter struct {
	grammars []Grammar
}

// New returns an interpreter with the default grammar order. Passing grammars
// replaces that order.
func New(grammars ...Grammar) *Interpreter {
	if len(grammars) == 0 {
		grammars = DefaultGrammars()
	}
	return &Interpreter{grammars: grammars}
}

func DefaultGrammars() []Grammar {
	return []Grammar{SaleSentence, BuySentence, Structured}
}

// Interpret returns the intent from the first matching grammar. A false
// result means the text is ordinary conversation.
func (in *Interpreter) Interpret(text string) (core.Intent, bool) {
	intent, _, ok := in.InterpretNamed(text)
	return intent, ok
}

// InterpretNamed is Interpret plus the name of the grammar that matched.
func (in *Interpreter) InterpretNamed(text string) (core.Intent, string, bool) {
	for _, g := range in.grammars {
		if intent, ok := g.Match(text); ok {
			return intent, g.Name, true
		}
	}
	return core.Intent{}, "", false
}
