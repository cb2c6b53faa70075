package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
)

type evaluateCmd struct {
	alert string
}

func (*evaluateCmd) Name() string     { return "evaluate" }
func (*evaluateCmd) Synopsis() string { return "evaluate a stored alert without recording it" }
func (*evaluateCmd) Usage() string {
	return `pvectl evaluate -a <alert>
`
}

func (c *evaluateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.alert, "a", "", "Alert condition ID")
}

func (c *evaluateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.alert == "" {
		fmt.Fprintln(os.Stderr, "Error: -a is required")
		return subcommands.ExitUsageError
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		eval, err := s.engine.Alerts.EvaluateStored(ctx, c.alert)
		if err != nil {
			return err
		}
		renderEvaluation(eval)
		return nil
	})
}

func renderEvaluation(e model.AlertEvaluation) {
	switch {
	case e.Skipped:
		fmt.Fprintf(stdout, "%s %s: paused\n", e.ConditionID, e.Type)
	case e.Triggered:
		fmt.Fprintf(stdout, "%s %s: TRIGGERED (measured %s, threshold %s)\n", e.ConditionID, e.Type, e.MeasuredValue, e.Threshold)
	default:
		fmt.Fprintf(stdout, "%s %s: not triggered (measured %s, threshold %s)\n", e.ConditionID, e.Type, e.MeasuredValue, e.Threshold)
	}
}

type sweepCmd struct{}

func (*sweepCmd) Name() string     { return "sweep" }
func (*sweepCmd) Synopsis() string { return "evaluate all active alerts and record triggers" }
func (*sweepCmd) Usage() string {
	return `pvectl sweep

  Runs one alert sweep, the same as the scheduled job.
`
}

func (*sweepCmd) SetFlags(*flag.FlagSet) {}

func (*sweepCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		res, err := s.engine.Alerts.Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "evaluated %d, triggered %d, cooling off %d, deferred %d, failed %d\n",
			res.Evaluated, res.Triggered, res.CoolingOff, res.Deferred, res.Failed)
		return nil
	})
}
