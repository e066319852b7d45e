package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/framelai"
)

func newRunCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a live session driven by control messages on stdin",
		Long: `Run starts a session on a frame document and reads control messages, one
JSON object per line, from stdin:

  {"action":"updateSettings","enabled":false}
  {"action":"showCacheStats"}
  {"action":"clearCache"}
  {"action":"forceRefresh"}

Every message is answered with one JSON line on stdout. At end of input the
session settles, the cache is written and, with -o, the document is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the final document here")
	cmd.Flags().String("content-id", "", "Id of the content container")
	return cmd
}

func (a *app) serve(ctx context.Context, input, output string) error {
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

	enc := json.NewEncoder(a.stdout)
	scanner := bufio.NewScanner(a.stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg framelai.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			a.logger.Warn("invalid message", "error", err)
			if err := enc.Encode(framelai.Reply{Error: "invalid message: " + err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(sess.HandleMessage(ctx, msg)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading messages: %w", err)
	}

	if err := sess.Wait(ctx); err != nil {
		return err
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		a.logger.Warn("closing session failed", "error", err)
	}
	if output == "" {
		return nil
	}
	return a.writeDocument(doc, output)
}
