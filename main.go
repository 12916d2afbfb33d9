// Package main is the entry point for the scrub sanitization service.
package main

import (
	"context"
	"fmt"
	"os"

	"scrub/bootstrap"
	"scrub/cmd"
)

// run initializes and starts the sanitize service.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()

	return nil
}

// main is the entry point.
func main() {
	// Check if running as the standalone fuzz driver
	if len(os.Args) > 1 && os.Args[1] == "fuzz" {
		// Strip "fuzz" from os.Args since the command already knows it's
		// the fuzz command
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		fuzzCmd := cmd.NewFuzzCmd()
		if err := fuzzCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Otherwise run as the sanitize API service
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
