package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
)

type historyCmd struct {
	portfolio string
	start     string
	end       string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the daily performance series of a portfolio" }
func (*historyCmd) Usage() string {
	return `pvectl history -p <portfolio> [-start <date>] [-end <date>]

  Prints one line per day with its value and where it came from (snapshot or
  computed), followed by return statistics. Defaults to the last 30 days.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio ID")
	f.StringVar(&c.start, "start", "", "First day (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "Last day (YYYY-MM-DD). Defaults to today.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.portfolio == "" {
		fmt.Fprintln(os.Stderr, "Error: -p is required")
		return subcommands.ExitUsageError
	}
	end, err := parseDay(c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -end: %v\n", err)
		return subcommands.ExitUsageError
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start, err := parseDay(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -start: %v\n", err)
		return subcommands.ExitUsageError
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -29)
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		portfolio, err := s.engine.Store.GetPortfolioOnID(ctx, c.portfolio)
		if err != nil {
			return err
		}
		points, stats, err := s.engine.Summary.GetPerformance(ctx, c.portfolio, start, end)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Date, formatAmount(p.Value, portfolio.BaseCurrency), p.Source)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "\n%d days, mean daily return %.4f%%, volatility %.4f%%, max drawdown %.2f%%\n",
			stats.Days, stats.MeanDailyReturn*100, stats.Volatility*100, stats.MaxDrawdown*100)
		return nil
	})
}
