package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
)

type materializeCmd struct {
	portfolio string
	start     string
	end       string
}

func (*materializeCmd) Name() string     { return "materialize" }
func (*materializeCmd) Synopsis() string { return "store daily portfolio snapshots" }
func (*materializeCmd) Usage() string {
	return `pvectl materialize [-p <portfolio>] [-start <date>] [-end <date>]

  Computes and stores one snapshot per day. Without -p the single day -end
  (default yesterday) is materialized for every active portfolio.
`
}

func (c *materializeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio ID")
	f.StringVar(&c.start, "start", "", "First day (YYYY-MM-DD). Defaults to -end.")
	f.StringVar(&c.end, "end", "", "Last day (YYYY-MM-DD). Defaults to yesterday.")
}

func (c *materializeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	end, err := parseDay(c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -end: %v\n", err)
		return subcommands.ExitUsageError
	}
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	}
	start, err := parseDay(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -start: %v\n", err)
		return subcommands.ExitUsageError
	}
	if start.IsZero() {
		start = end
	}
	if c.portfolio == "" && !start.Equal(end) {
		fmt.Fprintln(os.Stderr, "Error: a date range needs -p")
		return subcommands.ExitUsageError
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		var (
			n   int
			err error
		)
		if c.portfolio == "" {
			n, err = s.engine.Snapshots.MaterializeAll(ctx, end)
		} else {
			n, err = s.engine.Snapshots.MaterializePortfolio(ctx, c.portfolio, start, end)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d snapshots written\n", n)
		return nil
	})
}
