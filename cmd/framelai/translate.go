package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/framelai"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		output   string
		timeout  time.Duration
		original bool
	)

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate a saved frame document and print the result",
		Long: `Translate reads a frame document (a file or stdin), translates the text
of the content container, waits for every retry to settle and writes the
resulting HTML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return a.translate(ctx, input, output, original)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up after this long")
	cmd.Flags().BoolVar(&original, "original", false, "Write the original text back after translating")
	cmd.Flags().String("content-id", "", "Id of the content container")
	return cmd
}

func (a *app) translate(ctx context.Context, input, output string, original bool) error {
	doc, err := a.readDocument(input)
	if err != nil {
		return err
	}
	sess, err := a.newSession(doc)
	if err != nil {
		return err
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}
	waitErr := sess.Wait(ctx)

	if pending := sess.Pending(); len(pending) > 0 {
		a.logger.Warn("untranslated units remain", "count", len(pending))
	}
	if original {
		sess.SetMode(framelai.ModeOriginal)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		a.logger.Warn("closing session failed", "error", err)
	}
	if waitErr != nil && !errors.Is(waitErr, context.DeadlineExceeded) {
		return fmt.Errorf("waiting for translation: %w", waitErr)
	}
	if waitErr != nil {
		a.logger.Warn("timed out, writing partial result")
	}

	stats := sess.Console().ShowStats()
	a.logger.Info("translation finished", "cached", stats.Entries)
	return a.writeDocument(doc, output)
}
