/*
Package firstaid is a conversational first-aid guide.

A user describes an emergency in free text; the bot classifies it, walks a
decision graph of yes/no questions and instruction steps, and always closes
with a call to seek medical help. Sessions that stop answering a question are
reset after a grace period.

# Concept

The decision graph (Emergency -> entry questions -> YES/NO steps -> FOLLOWS
steps) lives behind ports.GraphStore: in memory from a YAML tree, in SQLite,
in Neo4j or as a folder of markdown notes. Session state lives behind
ports.StateStore (memory or Redis). Every message for a session is applied
under that session's lock, so concurrent messages and idle expiries never
interleave.

# Usage

	bot, err := firstaid.New()
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	reply, err := bot.Chat(ctx, "session-123", "me corté un dedo")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Text) // the first question for "Cortes y Raspaduras Menores"

Language models are optional: pass a phrasing.LLM with WithPhraser to rewrite
replies, or a classifier.Chain with WithClassifier to fall back to a model when
no keyword matches. Both degrade to fixed texts when the model fails.
*/
package firstaid
