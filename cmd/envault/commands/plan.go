package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envault/envault/internal/config"
)

func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "plan --env <name>",
		Short: "Preview what an environment would resolve",
		Long: `List every variable in an environment with its source, without
contacting the secret store or reading any values.

Examples:
  envault plan --env production`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver(cfg)
			if err != nil {
				return err
			}

			planned, err := resolver.Plan(envName)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VARIABLE\tSOURCE\tCAST\tOPTIONAL")
			for _, p := range planned {
				cast := p.Cast
				if cast == "" {
					cast = "-"
				}
				optional := ""
				if p.Optional {
					optional = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Source, cast, optional)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
