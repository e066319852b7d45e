package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/framelai"
	"github.com/ZaguanLabs/framelai/config"
	"github.com/ZaguanLabs/framelai/logging"
)

func newRootCmd(a *app) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           framelai.Name,
		Short:         framelai.Description,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configPath)
		},
	}
	root.SetVersionTemplate(versionTemplate())

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ./framelai.yaml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console or json")
	flags.String("storage", "", "Cache storage backend: memory, file, redis, sqlite")
	flags.String("storage-path", "", "Cache directory (file) or database (sqlite)")
	flags.String("dictionary", "", "Dictionary file (YAML or JSON)")

	root.AddCommand(newTranslateCmd(a), newRunCmd(a), newCacheCmd(a))
	return root
}

func versionTemplate() string {
	t := framelai.Name + " {{.Version}}\n"
	if commit != "unknown" && commit != "" {
		t += "  commit:  " + commit + "\n"
	}
	if buildDate != "unknown" && buildDate != "" {
		t += "  built:   " + buildDate + "\n"
	}
	return t
}

// setup loads configuration, binding the persistent flags, and builds the
// logger.
func (a *app) setup(cmd *cobra.Command, configPath string) error {
	a.v = config.New()

	bindings := map[string]string{
		"logger.level":    "log-level",
		"logger.format":   "log-format",
		"storage.backend": "storage",
		"storage.path":    "storage-path",
		"dictionary":      "dictionary",
		"content_id":      "content-id",
	}
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(a.v, configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	var w io.Writer = a.stderr
	switch cfg.Logger.OutputPath {
	case "", "stderr":
	default:
		out, closeFn, err := logging.OpenOutput(cfg.Logger.OutputPath)
		if err != nil {
			return fmt.Errorf("opening log output: %w", err)
		}
		w = out
		a.closers = append(a.closers, closeFn)
	}
	a.logger = logging.New(w, logging.Options{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
	})
	a.logger.Debug("configuration loaded",
		"version", framelai.FullVersion(),
		"config", a.v.ConfigFileUsed(),
		"storage", cfg.Storage.Backend)
	return nil
}
