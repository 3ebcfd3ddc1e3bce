// Package builtin holds the small, fixed set of tools shipped with the loop:
// a weather stub, echo, a confined log reader and the customer lookup.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/reactloop/customer"
	"github.com/hupe1980/reactloop/tool"
)

const (
	// MaxEchoLength caps the echo tool output, in characters.
	MaxEchoLength = 500
	// MaxLogLength caps the read_log tool output, in characters.
	MaxLogLength = 8000
)

// Weather returns the stub weather tool. Without a location argument it
// reports on "your location".
func Weather() tool.Tool {
	return tool.NewFunctionTool(
		"weather",
		"Look up the current weather for a location",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string", "description": "City name, e.g. Paris"},
			},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			loc, _ := args["location"].(string)
			if strings.TrimSpace(loc) == "" {
				loc = "your location"
			}
			return fmt.Sprintf("Weather for %s: 7C, light rain (stub).", loc), nil
		},
	)
}

type echoArgs struct {
	Message string `json:"message" description:"Text to echo back"`
}

// Echo returns a tool that repeats its message, truncated to MaxEchoLength
// characters.
func Echo() tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"echo",
		"Echo a message back",
		echoArgs{},
		func(_ context.Context, args map[string]any) (string, error) {
			msg, _ := args["message"].(string)
			return truncate(msg, MaxEchoLength), nil
		},
	)
}

type readLogArgs struct {
	Filename string `json:"filename" description:"Log file name inside the log directory"`
}

// ReadLog returns a tool reading files from root only. Names containing path
// separators or ".." are refused.
func ReadLog(root string) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"read_log",
		"Read a log file from the log directory",
		readLogArgs{},
		func(_ context.Context, args map[string]any) (string, error) {
			name, _ := args["filename"].(string)
			if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
				return "", errors.New("invalid filename")
			}
			data, err := os.ReadFile(filepath.Join(root, name))
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%s not found", name)
			}
			if err != nil {
				return "", fmt.Errorf("read %s: %w", name, err)
			}
			return truncate(string(data), MaxLogLength), nil
		},
	)
}

// Lookuper is the part of the customer store the lookup tool needs.
type Lookuper interface {
	Lookup(ctx context.Context, id int64) (customer.Record, error)
}

type customerArgs struct {
	CustomerID int64 `json:"customer_id" description:"Numeric customer id"`
}

// CustomerLookup returns a tool that fetches a protected customer record.
// Missing customers are a normal result, not an error.
func CustomerLookup(store Lookuper) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"customer_lookup",
		"Fetch a customer record by id (email hashed, phone masked)",
		customerArgs{},
		func(ctx context.Context, args map[string]any) (string, error) {
			id, _ := args["customer_id"].(int64)
			rec, err := store.Lookup(ctx, id)
			if errors.Is(err, customer.ErrNotFound) {
				return "No record found.", nil
			}
			if err != nil {
				return "", err
			}
			return rec.String(), nil
		},
	)
}

// Options selects which optional tools Defaults includes.
type Options struct {
	// LogRoot enables read_log when non-empty.
	LogRoot string
	// Customers enables customer_lookup when non-nil.
	Customers Lookuper
}

// Defaults returns weather and echo plus whichever optional tools are configured.
func Defaults(opts Options) []tool.Tool {
	tools := []tool.Tool{Weather(), Echo()}
	if opts.LogRoot != "" {
		tools = append(tools, ReadLog(opts.LogRoot))
	}
	if opts.Customers != nil {
		tools = append(tools, CustomerLookup(opts.Customers))
	}
	return tools
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
