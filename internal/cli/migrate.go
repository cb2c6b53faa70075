package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/database"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `pvectl migrate

  Applies every pending migration and prints the resulting schema version.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		v, err := database.SchemaVersion(ctx, s.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "schema version %d\n", v)
		return nil
	})
}
