package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/service"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	portfolio string
	date      string
	days      int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the valuation summary of a portfolio" }
func (*summaryCmd) Usage() string {
	return `pvectl summary -p <portfolio> [-d <date>] [-days <n>]

  Displays total value, P&L, daily change and allocation of a portfolio.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio ID")
	f.StringVar(&c.date, "d", "", "Valuation time (YYYY-MM-DD or RFC 3339). Defaults to now.")
	f.IntVar(&c.days, "days", 0, "Daily points in the performance series, today included. Defaults to ENGINE_PERFORMANCE_DAYS.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.portfolio == "" {
		fmt.Fprintln(os.Stderr, "Error: -p is required")
		return subcommands.ExitUsageError
	}
	asOf, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		summary, err := s.engine.Summary.GetSummary(ctx, service.SummaryRequest{
			PortfolioID: c.portfolio,
			AsOf:        asOf,
			Days:        c.days,
		})
		if err != nil {
			return err
		}
		renderSummary(summary)
		return nil
	})
}

func renderSummary(s *model.PortfolioSummary) {
	ccy := s.BaseCurrency
	fmt.Fprintf(stdout, "Portfolio %s as of %s\n\n", s.PortfolioID, s.AsOf.Format("2006-01-02 15:04 MST"))

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total value\t%s\n", formatAmount(s.TotalValue, ccy))
	fmt.Fprintf(w, "Total cost\t%s\n", formatAmount(s.TotalCost, ccy))
	fmt.Fprintf(w, "Unrealized P&L\t%s\n", formatAmount(s.TotalUnrealizedPnl, ccy))
	fmt.Fprintf(w, "Realized P&L\t%s\n", formatAmount(s.TotalRealizedPnl, ccy))
	fmt.Fprintf(w, "Daily change\t%s (%s%%)\n", formatAmount(s.DailyChange, ccy), s.DailyChangePercent.StringFixed(2))
	w.Flush()

	if len(s.Allocation) > 0 {
		fmt.Fprintln(stdout, "\nAllocation")
		w = tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		for _, a := range s.Allocation {
			fmt.Fprintf(w, "  %s\t%s\t%s%%\n", a.Class, formatAmount(a.Value, ccy), a.Percent.StringFixed(2))
		}
		w.Flush()
	}

	if len(s.MissingQuotes) > 0 {
		fmt.Fprintf(stdout, "\nNo quote for: %v\n", s.MissingQuotes)
	}
}
