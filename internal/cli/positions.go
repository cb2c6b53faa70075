package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type positionsCmd struct {
	portfolio string
	date      string
	closed    bool
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "list the valued positions of a portfolio" }
func (*positionsCmd) Usage() string {
	return `pvectl positions -p <portfolio> [-d <date>] [-closed]
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio ID")
	f.StringVar(&c.date, "d", "", "Valuation time (YYYY-MM-DD or RFC 3339). Defaults to now.")
	f.BoolVar(&c.closed, "closed", false, "Include closed positions")
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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
		portfolio, err := s.engine.Store.GetPortfolioOnID(ctx, c.portfolio)
		if err != nil {
			return err
		}
		positions, err := s.engine.Summary.GetPositions(ctx, c.portfolio, asOf, c.closed)
		if err != nil {
			return err
		}

		ccy := portfolio.BaseCurrency
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "Symbol\tQuantity\tAvg price\tPrice\tValue\tUnrealized\tRealized\t")
		for _, p := range positions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				p.Symbol,
				p.Quantity.String(),
				formatAmount(p.AvgPrice, ccy),
				formatNull(p.CurrentPrice, ccy),
				formatNull(p.MarketValue, ccy),
				formatNull(p.UnrealizedPnl, ccy),
				formatAmount(p.RealizedPnl, ccy),
			)
		}
		return w.Flush()
	})
}
