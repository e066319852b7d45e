package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/framelai"
	"github.com/ZaguanLabs/framelai/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the persisted translation cache",
	}
	cmd.AddCommand(
		newCacheStatsCmd(a),
		newCacheClearCmd(a),
		newCacheDeleteCmd(a),
		newCacheExportCmd(a),
		newCacheImportCmd(a),
	)
	return cmd
}

// loadStore opens the configured store and loads the persisted entries.
func (a *app) loadStore(ctx context.Context) (*cache.Store, error) {
	dict, err := a.loadDictionary()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(dict)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newCacheStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of entries and the persisted size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			stats := framelai.NewConsole(store, a.logger).ShowStats()
			fmt.Fprintf(a.stdout, "entries: %d\n", stats.Entries)
			fmt.Fprintf(a.stdout, "bytes:   %d (%.2f KiB)\n", stats.Bytes, float64(stats.Bytes)/1024)
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached translation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := framelai.NewConsole(store, a.logger).ClearCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "cache cleared")
			return nil
		},
	}
}

func newCacheDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the translation cached for one original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			if !framelai.NewConsole(store, a.logger).Delete(args[0]) {
				return fmt.Errorf("no cached translation for %q", args[0])
			}
			if err := store.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "deleted")
			return nil
		},
	}
}

func newCacheExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cache as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = a.stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return store.Export(w)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newCacheImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON snapshot into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening snapshot: %w", err)
			}
			defer f.Close()

			res, err := store.Import(f)
			if err != nil {
				return err
			}
			if err := store.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "imported %d entries (%d skipped)\n", res.Imported, res.Skipped)
			return nil
		},
	}
}
