package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hussaintmg/Population-Weather-App/internal/utils"
)

var optJSON bool

var optionsCmd = &cobra.Command{
	Use:               "options <population|weather>",
	Short:             "List the filter choices of a board",
	Args:              kindArg,
	ValidArgsFunction: kindCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBoard(args[0])
		if err != nil {
			return err
		}
		opts, err := b.Options(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if optJSON {
			data, err := utils.PrettyJSON(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		for _, c := range opts.Filters {
			fmt.Fprintf(out, "%s (%d): %s\n", c.Column, len(c.Values), strings.Join(c.Values, ", "))
		}
		if opts.DateColumn != "" {
			if opts.DateMin == nil {
				fmt.Fprintf(out, "%s: no valid dates\n", opts.DateColumn)
			} else {
				fmt.Fprintf(out, "%s: %s .. %s\n", opts.DateColumn, opts.DateMin.Format("2006-01-02"), opts.DateMax.Format("2006-01-02"))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
	optionsCmd.Flags().BoolVar(&optJSON, "json", false, "print JSON instead of text")
}
