package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xetgo/internal/auth"
	"xetgo/internal/backend"
	"xetgo/internal/config"
	"xetgo/internal/history"
	"xetgo/internal/xetfs"
)

// App is the application layer between the CLI and the transfer service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw URIs, and manages the history store lifecycle on Close.
type App struct {
	cfg      *config.Config
	resolver *xetfs.Resolver
	service  *xetfs.Service
	store    history.Store
	op       *OperationRecord
	logFile  *os.File
}

// New creates a fully wired App from the given config. operation identifies
// the CLI command being run (e.g. "Copy", "Remove"). The caller must call
// Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	creds, err := auth.NewStore(AuthDir(cfg.BaseDir)).Load()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	resolver := xetfs.NewResolver()
	backend.RegisterAll(resolver, cfg, creds.Token)

	store, err := history.NewStoreFromConfig(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	op := NewOperationRecord(operation)
	logger, logFile, err := newLogger(cfg.LogDir, op.ID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := xetfs.NewService(resolver, &slogAdapter{l: logger},
		int64(cfg.MaxConcurrentCopies), cfg.WorkerPoolSize)

	return &App{
		cfg:      cfg,
		resolver: resolver,
		service:  svc,
		store:    store,
		op:       op,
		logFile:  logFile,
	}, nil
}

// persistOperation saves the operation record to the history store.
// This should only be called for mutating commands.
func (a *App) persistOperation(message, source, destination string) error {
	if a.op.Persisted() {
		return nil
	}
	if err := a.store.Start(a.op.toHistory(message, source, destination)); err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.persisted = true
	return nil
}

// Fail marks the operation as failed. Close records the final status.
func (a *App) Fail() {
	a.op.Status = "error"
}

// Copy copies source to destination, descending into subdirectories when
// recursive is set. Transactional destinations are written under a single
// transaction labeled with message.
func (a *App) Copy(ctx context.Context, source, destination, message string, recursive bool) error {
	if err := a.persistOperation(message, source, destination); err != nil {
		return err
	}
	return a.service.RootCopy(ctx, source, destination, message, recursive)
}

// Move renames source to target within one backend.
func (a *App) Move(ctx context.Context, source, target, message string, recursive bool) error {
	if err := a.persistOperation(message, source, target); err != nil {
		return err
	}
	return a.service.Move(ctx, source, target, message, recursive)
}

// Remove deletes the given URIs. All URIs must share one backend.
func (a *App) Remove(ctx context.Context, uris []string, message string) error {
	if err := a.persistOperation(message, strings.Join(uris, " "), ""); err != nil {
		return err
	}
	return a.service.Remove(ctx, uris, message)
}

// Duplicate copies a whole repository, optionally adjusting its visibility,
// and returns the destination URI.
func (a *App) Duplicate(ctx context.Context, source, dest string, private, public bool) (string, error) {
	if err := a.persistOperation("duplicate "+source, source, dest); err != nil {
		return "", err
	}
	return a.service.Duplicate(ctx, source, dest, private, public)
}

// Info returns backend metadata for a single URI.
func (a *App) Info(ctx context.Context, uri string) (xetfs.EntryInfo, error) {
	b, path, err := a.resolver.Resolve(ctx, uri)
	if err != nil {
		return xetfs.EntryInfo{}, err
	}
	return b.Info(ctx, path)
}

// History returns the most recent recorded operations, newest first.
func (a *App) History(limit int) ([]*history.Operation, error) {
	return a.store.List(limit)
}

// Mount asks the backend to expose the given reference at localPath.
func (a *App) Mount(ctx context.Context, uri, localPath string, prefetch bool) error {
	b, path, err := a.resolver.Resolve(ctx, uri)
	if err != nil {
		return err
	}
	m, ok := b.(xetfs.Mounter)
	if !ok {
		return fmt.Errorf("%s does not support mounting", b.Protocol())
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("resolving mount point %s: %w", localPath, err)
	}
	return m.Mount(ctx, path, abs, prefetch)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.Finish(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history store: %w", err)
	}
	if err := a.resolver.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
