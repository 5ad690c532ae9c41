package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cdstail/cdstail/internal/commands"
	"github.com/cdstail/cdstail/internal/ui"
	cdstailBugsnag "github.com/cdstail/cdstail/pkg/bugsnag"
)

func main() {
	if err := cdstailBugsnag.Initialize(); err != nil {
		// Error tracking is optional
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize error tracking: %v\n", err)
	}

	defer cdstailBugsnag.NotifyOnPanic(context.Background())

	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		errMsg := err.Error()
		switch {
		case strings.HasPrefix(errMsg, "unknown command"):
			// Commands suppress usage, so print it here
			_ = rootCmd.Usage()
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, err)
		case strings.HasPrefix(errMsg, "unknown flag"):
			// Cobra already showed usage
			fmt.Fprintln(os.Stderr, err)
		default:
			var uiErr *ui.UIError
			if errors.As(err, &uiErr) && (uiErr.Type == ui.ErrorTypeAPI || uiErr.Type == ui.ErrorTypeInternal) {
				cdstailBugsnag.NotifyError(context.Background(), uiErr.Err)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
