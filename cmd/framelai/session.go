package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZaguanLabs/framelai"
	"github.com/ZaguanLabs/framelai/cache"
	"github.com/ZaguanLabs/framelai/config"
	"github.com/ZaguanLabs/framelai/dictionary"
	"github.com/ZaguanLabs/framelai/dom"
	"github.com/ZaguanLabs/framelai/storage"
)

// openStorage opens the configured cache backend. The returned close func
// is never nil.
func openStorage(cfg config.StorageConfig) (storage.Storage, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return storage.NewMemory(), noop, nil
	case "", "file":
		st, err := storage.NewFile(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return st, noop, nil
	case "redis":
		st, err := storage.NewRedis(storage.RedisConfig{
			URL:       cfg.RedisURL,
			TTL:       cfg.RedisTTL,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case "sqlite":
		st, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func (a *app) loadDictionary() (*dictionary.Dictionary, error) {
	if a.cfg.Dictionary == "" {
		return dictionary.New(nil), nil
	}
	d, err := dictionary.LoadFile(a.cfg.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}
	a.logger.Debug("dictionary loaded", "path", a.cfg.Dictionary, "entries", d.Len())
	return d, nil
}

// openStore builds the translation cache over the configured backend.
func (a *app) openStore(dict *dictionary.Dictionary) (*cache.Store, error) {
	st, closeFn, err := openStorage(a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", a.cfg.Storage.Backend, err)
	}
	a.closers = append(a.closers, closeFn)

	opts := []cache.Option{
		cache.WithDictionary(dict),
		cache.WithLogger(a.logger),
	}
	if a.cfg.Storage.Key != "" {
		opts = append(opts, cache.WithKey(a.cfg.Storage.Key))
	}
	if a.cfg.Storage.Debounce > 0 {
		opts = append(opts, cache.WithDebounce(a.cfg.Storage.Debounce))
	}
	return cache.NewStore(st, opts...), nil
}

// newSession wires a session for doc from the loaded configuration.
func (a *app) newSession(doc *dom.Document) (*framelai.Session, error) {
	dict, err := a.loadDictionary()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(dict)
	if err != nil {
		return nil, err
	}

	remote, err := remoteFactory(a.cfg)
	if err != nil {
		return nil, err
	}
	if a.cfg.RateLimit.RequestsPerMinute > 0 {
		remote = framelai.NewRateLimitedTranslator(remote, a.cfg.RateLimit)
	}

	return framelai.NewSession(doc, remote,
		framelai.WithDictionary(dict),
		framelai.WithStore(store),
		framelai.WithSettings(config.NewSource(a.v)),
		framelai.WithLogger(a.logger),
		framelai.WithTiming(a.cfg.Timing.Timing()),
		framelai.WithContentID(a.cfg.ContentID),
		framelai.WithExcludedSelector(a.cfg.ExcludedSelector),
	)
}

// readDocument parses the frame document at path, or stdin for "" and "-".
func (a *app) readDocument(path string) (*dom.Document, error) {
	if path == "" || path == "-" {
		return dom.Parse(a.stdin, dom.WithFrame())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return dom.Parse(f, dom.WithFrame())
}

// writeDocument renders doc to path, or stdout for "" and "-".
func (a *app) writeDocument(doc *dom.Document, path string) error {
	out, err := doc.HTML()
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(a.stdout, out)
		return err
	}
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
