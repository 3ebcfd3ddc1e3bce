// Package session keeps records of finished agent runs. Conversation state
// lives only for the duration of a run; the store holds what a caller may
// want to inspect afterwards (outcome, transcript, budget usage). Records are
// kept in process memory and do not survive a restart.
package session
