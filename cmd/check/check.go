package check

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/514labs/moose-e2e/chclient"
	"github.com/514labs/moose-e2e/cmd/internal/cmdutil"
	"github.com/514labs/moose-e2e/corpus"
	"github.com/514labs/moose-e2e/schemaverify"
)

func Command() *cobra.Command {
	var (
		url       string
		suiteName string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a live database against an expected schema suite.",
		Long: `Check introspects the ClickHouse instance at --url and validates it
against one of the bundled schema suites, reporting every table's findings
before exiting non-zero on any mismatch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger(cmd)
			if err != nil {
				return err
			}

			url := cmdutil.ResolveString(cmd, "url", url)
			if url == "" {
				return errors.New("--url or MOOSE_E2E_URL is required")
			}
			suite, ok := corpus.ByName(suiteName)
			if !ok {
				var known []string
				for _, s := range corpus.All() {
					known = append(known, s.Name())
				}
				return errors.Newf("unknown suite %q, have: %s", suiteName, strings.Join(known, ", "))
			}

			v := schemaverify.Validator{
				Intro:  chclient.Client{URL: url},
				Logger: logger,
			}
			report := v.ValidateAll(context.Background(), suite.Tables)
			render(report)
			if !report.Valid {
				return errors.Newf("suite %s failed validation", suite.Name())
			}
			logger.Info().Str("suite", suite.Name()).Msg("schema validated")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "ClickHouse HTTP URL of the database under test")
	cmd.Flags().StringVar(&suiteName, "suite", "python/default", "schema suite to validate against")
	return cmd
}

func render(report schemaverify.Report) {
	names := make([]string, 0, len(report.Results))
	for name := range report.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Table", "Status", "Findings"})
	for _, name := range names {
		result := report.Results[name]
		status := "ok"
		if !result.Valid {
			status = "invalid"
		}
		t.AppendRow(table.Row{name, status, strings.Join(result.Errors, "\n")})
	}
	t.Render()
}
