package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/ziris-auth/audit"
	"github.com/jrsteele09/ziris-auth/auth"
	"github.com/jrsteele09/ziris-auth/credentials"
	"github.com/jrsteele09/ziris-auth/internal/config"
	"github.com/jrsteele09/ziris-auth/ratelimit"
	"github.com/jrsteele09/ziris-auth/reset"
	"github.com/jrsteele09/ziris-auth/server"
	"github.com/jrsteele09/ziris-auth/session"
	"github.com/jrsteele09/ziris-auth/token"
	"github.com/jrsteele09/ziris-auth/users"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	for {
		if err := run(log); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	displayAppname(c.GetAppName())

	db, err := openDatabase(c.GetDatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := buildServer(c, db, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	go listenAndServe(httpServer, log)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config, db *sql.DB, log zerolog.Logger) (*server.Server, error) {
	userRepo, err := users.NewSQLiteRepo(db)
	if err != nil {
		return nil, fmt.Errorf("users.NewSQLiteRepo: %w", err)
	}

	auditSink, err := audit.NewSQLiteSink(db)
	if err != nil {
		return nil, fmt.Errorf("audit.NewSQLiteSink: %w", err)
	}

	hasher, err := credentials.NewHasher(c.GetBcryptCost())
	if err != nil {
		return nil, fmt.Errorf("credentials.NewHasher: %w", err)
	}

	codec := token.NewCodec(
		token.NewHMACSigner(c.GetSecret()),
		log,
		token.WithLegacyCompat(c.GetLegacyTokenCompat()),
	)

	sessions := session.NewManager(session.NewInMemoryRepo(), c.GetRefreshTokenExpiry(), c.GetRefreshTokenLength())
	resets := reset.NewStore(reset.WithTTL(c.GetResetTokenExpiry()))

	if c.GetEnv() == "DEV" {
		if err := users.SeedDevUsers(context.Background(), userRepo, hasher.Hash); err != nil {
			return nil, fmt.Errorf("users.SeedDevUsers: %w", err)
		}
	}

	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Sessions: sessions, Resets: resets},
		codec, hasher, ratelimit.New(), auditSink, log,
		auth.WithAccessTokenTTL(c.GetAccessTokenExpiry()),
		auth.WithLimits(auth.Limits{
			LoginMaxHits:    c.GetLoginMaxHits(),
			LoginWindow:     c.GetLoginWindow(),
			RegisterMaxHits: c.GetRegisterMaxHits(),
			RegisterWindow:  c.GetRegisterWindow(),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("auth.NewService: %w", err)
	}

	return server.New(c, authService, log)
}

func openDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func listenAndServe(httpServer *http.Server, log zerolog.Logger) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
