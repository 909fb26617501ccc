package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/store"
	"github.com/zombor/billed/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("billed")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		publicURL     = fs.StringLong("public-url", "", "Base URL proof links are served from (default http://localhost:<port>)")
		dbPath        = fs.StringLong("db", "billed.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./proofs", "Proof storage directory path, when no bucket is set")
		s3Bucket      = fs.StringLong("s3-bucket", "", "Store proofs in this S3 bucket instead of on disk")
		s3Endpoint    = fs.StringLong("s3-endpoint", "", "S3 compatible endpoint (e.g. MinIO)")
		s3Region      = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3AccessKey   = fs.StringLong("s3-access-key", "", "S3 access key")
		s3SecretKey   = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3PathStyle   = fs.BoolLong("s3-path-style", "Use path style S3 addressing")
		storeURL      = fs.StringLong("store-url", "", "Use a remote bill store API instead of the local database")
		storeSecret   = fs.StringLong("store-secret", "", "Secret signing identity tokens for the bill store API")
		tokenValidity = fs.DurationLong("token-validity", 5*time.Minute, "Lifetime of identity tokens")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional, any employee email when empty)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLED"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := session.NewTokens(*storeSecret, *tokenValidity)
	if err != nil {
		slog.Error("Store secret is required. Set --store-secret flag or BILLED_STORE_SECRET environment variable")
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	mux := http.NewServeMux()

	var (
		bills store.Bills
		local *store.Local
	)
	if *storeURL != "" {
		slog.Info("Using remote bill store", "url", *storeURL)
		client, err := store.NewClient(*storeURL, tokens)
		if err != nil {
			slog.Error("Failed to initialize store client", "error", err)
			os.Exit(1)
		}
		bills = client
	} else {
		// Initialize database
		slog.Info("Initializing database...")
		db, err := store.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		// Initialize proof storage
		var blobs store.Blobs
		if *s3Bucket != "" {
			slog.Info("Initializing S3 storage...", "bucket", *s3Bucket, "endpoint", *s3Endpoint)
			blobs, err = store.NewS3Blobs(ctx, store.S3Config{
				Endpoint:     *s3Endpoint,
				Region:       *s3Region,
				Bucket:       *s3Bucket,
				AccessKey:    *s3AccessKey,
				SecretKey:    *s3SecretKey,
				UsePathStyle: *s3PathStyle,
			})
		} else {
			slog.Info("Initializing storage...", "path", *storagePath)
			blobs, err = store.NewLocalBlobs(*storagePath)
		}
		if err != nil {
			slog.Error("Failed to initialize storage", "error", err)
			os.Exit(1)
		}

		base := *publicURL
		if base == "" {
			base = "http://localhost" + addr
		}
		local = store.NewLocal(db, blobs, base)
		bills = local
	}

	// Initialize server
	basicAuth := web.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := web.NewServerWithMux(bills, basicAuth, logger, mux)
	defer server.Close()

	// Proof links open in the browser, so they use the page login
	if local != nil {
		store.NewAPIWithFileAuth(local, tokens, server.Authenticate).Register(mux)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down server", "error", err)
	}
}
