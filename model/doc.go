// Package model defines the provider-agnostic contract for the language-model
// backend the agent loop talks to.
//
// Core goals:
//   - A single request/response Complete call over an ordered list of turns
//   - Generation parameters (temperature, max tokens, per-call timeout)
//   - One distinguishable failure kind (Error / ErrTransport) for network
//     errors, non-success status and malformed responses
//   - Lightweight deterministic models for tests (ScriptedModel)
//
// Providers (Ollama, OpenAI-compatible, Anthropic) live in sub-packages so the
// loop stays decoupled from vendor SDKs.
package model
