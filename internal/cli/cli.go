// Package cli implements the pvectl subcommands.
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/app"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/config"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/database"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/logging"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&migrateCmd{}, "database")
	c.Register(&materializeCmd{}, "database")

	c.Register(&summaryCmd{}, "reports")
	c.Register(&positionsCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")

	c.Register(&evaluateCmd{}, "alerts")
	c.Register(&sweepCmd{}, "alerts")
}

var (
	dbPath  = flag.String("db", "", "Path to the SQLite database. Defaults to DB_PATH.")
	timeout = flag.Duration("timeout", 2*time.Minute, "Maximum run time of a command")
	verbose = flag.Bool("v", false, "Log at debug level")
)

// stdout is where reports are written; tests replace it.
var stdout io.Writer = os.Stdout

// session is an open database with the engine built on top of it.
type session struct {
	cfg    *config.Config
	db     *sql.DB
	engine *app.Engine
	log    zerolog.Logger
}

// open loads the configuration, opens and migrates the database, and builds the engine.
func open(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	log := logging.NewWithWriter(logging.Config{Level: level, Pretty: true}, os.Stderr)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &session{cfg: cfg, db: db, engine: app.New(db, cfg, log), log: log}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

// withSession runs fn with an open session under the global timeout and maps
// its error to an exit status.
func withSession(ctx context.Context, fn func(ctx context.Context, s *session) error) subcommands.ExitStatus {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	s, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// formatAmount renders d in currency code, rounded to the currency's minor unit.
// Codes unknown to go-money fall back to the plain decimal.
func formatAmount(d decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		return d.String() + " " + code
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

// formatNull renders an optional amount, "n/a" when it is not set.
func formatNull(d decimal.NullDecimal, code string) string {
	if !d.Valid {
		return "n/a"
	}
	return formatAmount(d.Decimal, code)
}

// parseDay accepts a YYYY-MM-DD date or an RFC 3339 time. Empty means zero.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
