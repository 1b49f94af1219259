package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hussaintmg/Population-Weather-App/internal/export"
)

var (
	expFilters filterFlags
	expOutput  string
	expFormat  string
)

var exportCmd = &cobra.Command{
	Use:   "export <population|weather>",
	Short: "Write the filtered rows of a board to CSV or XLSX",
	Long: `export writes the rows selected by the filters, with every column of the
board, to a CSV or XLSX file. The format follows --format, then the output
extension. Without -o the file is named like the dashboard download.`,
	Args:              kindArg,
	ValidArgsFunction: kindCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBoard(args[0])
		if err != nil {
			return err
		}
		var format export.Format
		switch {
		case expFormat != "":
			format, err = export.ParseFormat(expFormat)
		case expOutput != "":
			format, err = export.FormatFromPath(expOutput)
		default:
			format = export.FormatCSV
		}
		if err != nil {
			return err
		}
		sel, err := expFilters.selection()
		if err != nil {
			return err
		}
		spec, err := b.BuildSpec(sel)
		if err != nil {
			return err
		}
		dl, err := b.Export(cmd.Context(), spec, format)
		if err != nil {
			return err
		}
		path := expOutput
		if path == "" {
			path = dl.Filename
		}
		if err := export.WriteFile(path, dl.Data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows to %s\n", dl.Rows, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	expFilters.bind(exportCmd)
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output file (.csv or .xlsx)")
	exportCmd.Flags().StringVar(&expFormat, "format", "", "csv or xlsx (default from the output extension)")
}
