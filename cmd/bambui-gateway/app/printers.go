package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/bambui-io/bambui/cmd/bambui-gateway/app/options"
	"github.com/bambui-io/bambui/pkg/app"
)

// newPrintersCommand lists the configured printers without starting the
// gateway. Useful for checking what a config file resolves to.
func newPrintersCommand(opts *options.GatewayOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "printers",
		Short: "List the configured printers and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			if err := app.LoadConfig(configFile, commandName, cmd.Root().Flags(), opts); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			table := uitable.New()
			table.AddRow("NAME", "MODEL", "IP", "SERIAL")
			for _, p := range opts.Printers {
				table.AddRow(p.Name, p.Model, p.IP, p.Serial)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
