package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/hussaintmg/Population-Weather-App/internal/config"
	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
	"github.com/hussaintmg/Population-Weather-App/internal/utils"
)

var (
	// Global flags
	cfgFile        string
	debug          bool
	flagPopulation string
	flagWeather    string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Shared across the boards of one invocation
	logger *slog.Logger
	cache  *dataset.Cache
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Population and weather dashboards over CSV/XLSX extracts",
	Long: `dashboard loads the district population and city weather extracts, filters
them by district, province, city, country and date, and reports the
aggregates shown on each board. It can also export the filtered rows or
serve the boards over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dashboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagPopulation, "population", "", "population source file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagWeather, "weather", "", "weather source file (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("population") && flagPopulation != "" {
		cfg.PopulationPath = flagPopulation
	}
	if f.Changed("weather") && flagWeather != "" {
		cfg.WeatherPath = flagWeather
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	logger = newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	cache = dataset.NewCache(
		dataset.WithLogger(logger),
		dataset.WithLoadOptions(dataset.LoadOptions{
			Thousands: cfg.Thousands(),
			Sheet:     cfg.XLSXSheet,
		}),
	)
}

func newLogger(w io.Writer, c *cfgpkg.Global) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openBoard builds the board named by kind from the loaded configuration.
func openBoard(kind string) (*dashboard.Board, error) {
	k, err := dashboard.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if cfg == nil || cache == nil {
		loadConfig()
	}
	source := cfg.PopulationPath
	if k == dashboard.Weather {
		source = cfg.WeatherPath
	}
	return dashboard.New(k, utils.ExpandHome(source), cache,
		dashboard.WithLogger(logger),
		dashboard.WithTopN(cfg.TopN),
	)
}

// kindArg completes and validates the <kind> positional argument.
var kindArg = cobra.MatchAll(cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) error {
	_, err := dashboard.ParseKind(args[0])
	return err
})

func kindCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	out := make([]string, 0, 2)
	for _, k := range dashboard.Kinds() {
		out = append(out, string(k))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
