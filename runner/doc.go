// Package runner is the outer driver around an agent: it pulls user input
// from an InputSource, starts one fresh session per input, prints the answer
// and records the finished session. The words "exit" and "quit"
// (case-insensitive) end the loop.
package runner
