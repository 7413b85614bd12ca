package commands

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/petrel-labs/petrel/core"
)

// Exit codes for scripted use.
const (
	ExitValidation = 2
	ExitRequest    = 3
	ExitNetwork    = 4
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// renderError presents a classified failure: the taxonomy already carries
// the title, message, and suggested actions, so the CLI only formats.
func renderError(err error) error {
	ce, ok := core.AsClassified(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitWithCode(ExitRequest, err)
	}

	var attemptsErr *core.AttemptsError
	attempts := 0
	if errors.As(err, &attemptsErr) {
		attempts = attemptsErr.Attempts
	}

	if jsonOutput {
		out := map[string]any{
			"kind":     ce.Kind,
			"title":    ce.Title,
			"message":  ce.Message,
			"severity": ce.Severity,
			"actions":  ce.Actions,
		}
		if ce.Status != 0 {
			out["status"] = ce.Status
		}
		if ce.RequestID != "" {
			out["request_id"] = ce.RequestID
		}
		if attempts > 0 {
			out["attempts"] = attempts
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s\n", ce.Title, ce.Message)
		if attempts > 0 {
			fmt.Fprintf(os.Stderr, "  gave up after %d attempts\n", attempts)
		}
		if ce.RequestID != "" {
			fmt.Fprintf(os.Stderr, "  request id: %s\n", ce.RequestID)
		}
		for _, action := range ce.Actions {
			fmt.Fprintf(os.Stderr, "  - %s\n", action)
		}
	}

	switch ce.Kind {
	case core.KindServerError, core.KindTimedOut:
		return exitWithCode(ExitNetwork, err)
	case core.KindInvalidPayload, core.KindInvalidRequestURL:
		return exitWithCode(ExitValidation, err)
	default:
		return exitWithCode(ExitRequest, err)
	}
}
