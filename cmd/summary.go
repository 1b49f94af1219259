package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hussaintmg/Population-Weather-App/internal/utils"
)

var (
	sumFilters filterFlags
	sumTop     int
	sumJSON    bool
	sumOutput  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary <population|weather>",
	Short: "Print the metrics and charts of a board for a selection",
	Long: `summary filters a board's dataset and prints its metrics, group
breakdowns, rankings and correlations. Without --filter every value is
selected, as on the dashboard's initial view.`,
	Args:              kindArg,
	ValidArgsFunction: kindCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBoard(args[0])
		if err != nil {
			return err
		}
		sel, err := sumFilters.selection()
		if err != nil {
			return err
		}
		spec, err := b.BuildSpec(sel)
		if err != nil {
			return err
		}
		top := cfg.TopN
		if cmd.Flags().Changed("top") {
			top = sumTop
		}
		res, err := b.ComputeTop(cmd.Context(), spec, top)
		if err != nil {
			return err
		}

		var out []byte
		if sumJSON {
			if out, err = utils.PrettyJSON(res); err != nil {
				return err
			}
		} else {
			out = []byte(res.Report().Markdown())
		}
		if sumOutput != "" {
			if err := utils.SafeWriteFile(sumOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", sumOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	sumFilters.bind(summaryCmd)
	summaryCmd.Flags().IntVar(&sumTop, "top", 0, "length of the top districts ranking (default from config)")
	summaryCmd.Flags().BoolVar(&sumJSON, "json", false, "print the full result as JSON")
	summaryCmd.Flags().StringVarP(&sumOutput, "output", "o", "", "write to file instead of stdout")
}
