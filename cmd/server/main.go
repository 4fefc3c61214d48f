package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"realestate/internal/config"
	"realestate/internal/logging"
	"realestate/internal/services/storage"
	"realestate/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "realestate-server",
		Short:         "Real-estate marketplace and mortgage calculator server",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "encrypt",
			Short: "Enable encryption of the data directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrateEncryption(true)
			},
		},
		&cobra.Command{
			Use:   "decrypt",
			Short: "Disable encryption of the data directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrateEncryption(false)
			},
		},
	)
	return root
}

// loadConfig reads configuration and installs the logger
func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logging.Init(c.Log)
	return c, nil
}

func serve() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	info := version.Get()
	slog.Info("starting realestate server", "version", info.Version, "listen", c.Server.ListenAddr, "data_dir", c.Server.DataDirectory)
	if warning := info.Check(); warning != "" {
		slog.Warn(warning)
	}

	files, err = openStorage(c)
	if err != nil {
		return err
	}
	if err := SetupDependencies(c); err != nil {
		return err
	}
	defer closeDependencies()

	srv := &http.Server{
		Addr:              c.Server.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage opens the data directory, unlocking it when encrypted
func openStorage(c *config.Config) (*storage.Storage, error) {
	s, err := storage.New(c.Server.DataDirectory)
	if err != nil {
		return nil, err
	}
	if !s.IsEncrypted() {
		return s, nil
	}

	password, err := storePassword(c, "Data directory password: ")
	if err != nil {
		return nil, err
	}
	if err := s.Unlock(password); err != nil {
		return nil, fmt.Errorf("unlocking data directory: %w", err)
	}
	slog.Info("data directory unlocked")
	return s, nil
}

// storePassword returns REALESTATE_STORE_PASSWORD or prompts on a terminal
func storePassword(c *config.Config, prompt string) (string, error) {
	if c.Store.Password != "" {
		return c.Store.Password, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("data directory is encrypted: set REALESTATE_STORE_PASSWORD")
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(pw)), nil
}

// migrateEncryption encrypts or decrypts every document file in place
func migrateEncryption(enable bool) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := storage.New(c.Server.DataDirectory)
	if err != nil {
		return err
	}

	if enable {
		password, err := storePassword(c, "New password: ")
		if err != nil {
			return err
		}
		if c.Store.Password == "" {
			confirm, err := storePassword(c, "Confirm password: ")
			if err != nil {
				return err
			}
			if confirm != password {
				return fmt.Errorf("passwords do not match")
			}
		}
		if err := s.EnableEncryption(password); err != nil {
			return err
		}
		slog.Info("encryption enabled", "dir", s.BaseDir())
		return nil
	}

	password, err := storePassword(c, "Password: ")
	if err != nil {
		return err
	}
	if err := s.DisableEncryption(password); err != nil {
		return err
	}
	slog.Info("encryption disabled", "dir", s.BaseDir())
	return nil
}
