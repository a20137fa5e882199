package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"insurance-desk/internal/config"
	"insurance-desk/internal/flows"
	"insurance-desk/internal/logging"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite sink schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Sink.Kind != "sqlite" {
				return fmt.Errorf("migrate needs sink.kind sqlite, got %q", cfg.Sink.Kind)
			}

			s, err := openSQLite(cmd.Context(), cfg.Sink.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			log := logging.New(cfg.Log, cmd.ErrOrStderr())
			log.Info().Str("path", cfg.Sink.Path).Msg("migrations applied")
			return nil
		},
	}
}

func newFlowsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flows",
		Short: "List the wizard flows and their steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range flows.Names() {
				f, _ := flows.Get(name)
				variants := make([]string, 0, len(f.Variants))
				for _, v := range f.Variants {
					variants = append(variants, string(v))
				}
				fmt.Fprintf(out, "%s (%s) variants: %s\n", f.Name, f.RecordType, strings.Join(variants, ", "))
				for i, s := range f.Steps {
					only := ""
					if len(s.Variants) > 0 {
						vs := make([]string, 0, len(s.Variants))
						for _, v := range s.Variants {
							vs = append(vs, string(v))
						}
						only = " [" + strings.Join(vs, ", ") + "]"
					}
					fmt.Fprintf(out, "  %d. %s%s\n", i+1, s.Title, only)
				}
			}
			return nil
		},
	}
}
