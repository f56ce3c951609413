// Package cli implements partyctl, the maintenance tool for stored parties.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/cache"
	"github.com/nhiquach/white-elephant-party/internal/config"
	"github.com/nhiquach/white-elephant-party/internal/database"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	connect Connector
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// PartyStore is what the commands need from the party backend.
type PartyStore interface {
	store.Store
	store.Admin
}

// FeedReader reads the per-party action feed.
type FeedReader interface {
	Read(ctx context.Context, partyID string, from int) ([]cache.FeedEntry, error)
}

// ResultsReader reads archived results.
type ResultsReader interface {
	Results(ctx context.Context, partyID string) ([]engine.Result, error)
}

// Backend is an opened set of stores. Feed and Results are nil when the
// configuration does not provide them.
type Backend struct {
	Parties PartyStore
	Feed    FeedReader
	Results ResultsReader
	Close   func()
}

// Connector opens a Backend for cfg.
type Connector func(ctx context.Context, cfg *config.Config) (*Backend, error)

// NewRootCommand creates the partyctl root command backed by Redis and,
// when DATABASE_URL is set, the results archive.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(Connect)
}

// NewRootCommandWith creates the root command with a custom Connector.
func NewRootCommandWith(connect Connector) *cobra.Command {
	opts := &RootOptions{connect: connect}

	cmd := &cobra.Command{
		Use:   "partyctl",
		Short: "Inspect and clean up white elephant parties",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env", ".env", "dotenv file to load if present")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewHashKeyCommand(opts))

	return cmd
}

// Connect opens the Redis party store and optional Postgres archive named
// by cfg.
func Connect(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required: the memory store lives inside the server process")
	}
	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		Parties: cache.NewPartyStore(rdb, cfg.PartyTTL),
		Feed:    cache.NewActionFeed(rdb, cfg.PartyTTL),
		Close:   func() { rdb.Close() },
	}
	if cfg.DatabaseURL != "" {
		a, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			rdb.Close()
			return nil, err
		}
		b.Results = a
		b.Close = func() { a.Close(); rdb.Close() }
	}
	return b, nil
}

// open loads configuration and connects. The caller must call Close.
func (o *RootOptions) open(ctx context.Context) (*Backend, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return nil, setupErrorf("load config: %w", err)
	}
	b, err := o.connect(ctx, cfg)
	if err != nil {
		return nil, setupErrorf("connect: %w", err)
	}
	if b.Close == nil {
		b.Close = func() {}
	}
	return b, nil
}
