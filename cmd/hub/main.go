// Package main provides the hub command line: one-shot translation, OCR and
// transcription, the websocket hub server, and cache maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"translatorhub/cmd/hub/commands"
	"translatorhub/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if reqErr, ok := models.AsRequestError(err); ok {
			fmt.Fprintln(os.Stderr, reqErr.UserMessage())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
