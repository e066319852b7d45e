// Command framelai translates the story text of saved game frames and serves
// a live translation session driven by control messages.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/ZaguanLabs/framelai"
	"github.com/ZaguanLabs/framelai/config"
	"github.com/ZaguanLabs/framelai/provider"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = framelai.Version
	commit    = framelai.GitCommit
	buildDate = framelai.BuildDate
)

// remoteFactory builds the remote translator. Tests replace it.
var remoteFactory = func(cfg *config.Config) (framelai.RemoteTranslator, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required (openai.api_key, FRAMELAI_OPENAI_API_KEY or OPENAI_API_KEY)")
	}
	return provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		BaseURL:     cfg.OpenAI.BaseURL,
		Temperature: cfg.OpenAI.Temperature,
		TargetLang:  cfg.OpenAI.TargetLang,
	}), nil
}

// app carries what every subcommand needs.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
