// Package llm adapts chat-completion backends to ports.Completer.
//
// Two clients are provided: Eino, built on the cloudwego/eino OpenAI model
// component, and OpenAI, built on sashabaranov/go-openai. Both speak the
// OpenAI chat protocol, so either can target Gemini through its
// OpenAI-compatible endpoint (GeminiBaseURL).
package llm
