// quantbench — fixed-income and lattice calculations for teaching.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvikraman/quantbench/internal/bond"
	"github.com/mvikraman/quantbench/internal/config"
	"github.com/mvikraman/quantbench/internal/datasource"
	"github.com/mvikraman/quantbench/internal/lattice"
	"github.com/mvikraman/quantbench/internal/tree"
	"github.com/mvikraman/quantbench/pkg/models"
	"github.com/mvikraman/quantbench/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quantbench",
	Short: "quantbench — bond yields, price trees, and growth-rate lattices",
	Long: `quantbench
A toolkit for teaching quantitative fixed-income and lattice methods:
yield-to-maturity solving for coupon securities, cross-sectional statistics
over binomial price trees, and n-state growth-rate lattice calibration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ytmCmd)
	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(latticeCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quantbench %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- YTM Command ---

var ytmCmd = &cobra.Command{
	Use:   "ytm",
	Short: "Solve the yield to maturity of a coupon security",
	Long: `Solve for the yield that equates a security's discounted cash flows
to its observed market price, using the secant method.

Examples:
  quantbench ytm --coupon 0.05 --freq 2 --price 98.5 --term 2-Year
  quantbench ytm --coupon 0.0425 --price 101.2 --years 7 --trace`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := securityFromFlags(cmd)
		if err != nil {
			return err
		}
		termYears, err := termFromFlags(cmd)
		if err != nil {
			return err
		}
		price, _ := cmd.Flags().GetFloat64("price")
		showTrace, _ := cmd.Flags().GetBool("trace")

		sol, err := bond.SolveYTM(sec, termYears, price, solverOptions())
		if err != nil {
			return err
		}

		fmt.Printf("Yield to maturity: %.6f (%.4f%%)\n", sol.Yield, sol.Yield*100)
		fmt.Printf("  iterations: %d\n", sol.Iterations)
		if !sol.Converged {
			fmt.Println("  ⚠️  iteration budget exhausted — estimate may not have converged")
		}
		if showTrace {
			fmt.Println("  trace:")
			for i, y := range sol.Trace {
				fmt.Printf("    %3d  %.8f\n", i, y)
			}
		}
		return nil
	},
}

func init() {
	addSecurityFlags(ytmCmd)
	ytmCmd.Flags().Float64("price", 0, "observed market price (required)")
	ytmCmd.Flags().Bool("trace", false, "print every yield estimate of the solve")
	ytmCmd.MarkFlagRequired("price")
}

// --- Price Command ---

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Discount a coupon security's cash flows at a given yield",
	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := securityFromFlags(cmd)
		if err != nil {
			return err
		}
		termYears, err := termFromFlags(cmd)
		if err != nil {
			return err
		}
		yield, _ := cmd.Flags().GetFloat64("yield")

		pv, err := bond.PresentValue(sec, yield, termYears)
		if err != nil {
			return err
		}

		schedule, _ := bond.Schedule(sec, termYears)
		fmt.Printf("Present value: %.6f\n", pv)
		fmt.Printf("  payment steps: %d\n", len(schedule))
		fmt.Printf("  yield:         %.4f%%\n", yield*100)
		return nil
	},
}

func init() {
	addSecurityFlags(priceCmd)
	priceCmd.Flags().Float64("yield", 0, "annual yield as a fraction (required)")
	priceCmd.MarkFlagRequired("yield")
}

// --- Lattice Command ---

var latticeCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Calibrate an n-state growth-rate lattice from log returns",
	Long: `Discretize a sample of one-step log returns into n ordered states,
reporting per-state movement factors and frequencies.

Examples:
  quantbench lattice --file returns.txt --states 3
  quantbench lattice --returns "-0.02,-0.01,0,0.01,0.02" --states 2 --method quantile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rates, err := ratesFromFlags(cmd)
		if err != nil {
			return err
		}

		summary, err := buildLatticeFromFlags(cmd, rates)
		if err != nil {
			return err
		}

		printLattice(summary)
		return nil
	},
}

func init() {
	addRatesFlags(latticeCmd)
	addLatticeFlags(latticeCmd)
}

// --- Tree Command ---

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Build a price tree from a calibrated lattice and report level statistics",
	Long: `Run the full pipeline: log returns → lattice → recombining price tree,
then print the expectation and variance of price at every level.

Example:
  quantbench tree --file returns.txt --start 100 --steps 5 --states 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rates, err := ratesFromFlags(cmd)
		if err != nil {
			return err
		}

		summary, err := buildLatticeFromFlags(cmd, rates)
		if err != nil {
			return err
		}

		start, _ := cmd.Flags().GetFloat64("start")
		steps, _ := cmd.Flags().GetInt("steps")

		model, err := tree.BuildFromLattice(start, summary, steps)
		if err != nil {
			return err
		}

		stats, err := model.SummaryAllLevels()
		if err != nil {
			return err
		}

		fmt.Printf("Price tree: %d levels, %d nodes\n", len(stats), model.Size())
		fmt.Printf("%6s  %14s  %14s  %14s\n", "level", "E[price]", "Var[price]", "SD[price]")
		for _, s := range stats {
			fmt.Printf("%6d  %14.6f  %14.6f  %14.6f\n",
				s.Level, s.Expectation, s.Variance, math.Sqrt(s.Variance))
		}
		return nil
	},
}

func init() {
	addRatesFlags(treeCmd)
	addLatticeFlags(treeCmd)
	treeCmd.Flags().Float64("start", 100, "price at the tree root")
	treeCmd.Flags().Int("steps", 5, "tree depth in time steps")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol]",
	Short: "Fetch a symbol's closing-price history from the configured archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, _ := cmd.Flags().GetString("url")
		if baseURL == "" {
			baseURL = cfg.Data.HistoryURL
		}
		if baseURL == "" {
			return fmt.Errorf("no price archive configured: set data.history_url or pass --url")
		}

		src := datasource.NewHistorySource(baseURL)
		points, err := src.GetHistory(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		asReturns, _ := cmd.Flags().GetBool("returns")
		if asReturns {
			for _, r := range datasource.LogReturns(points) {
				fmt.Printf("%.8f\n", r)
			}
			return nil
		}

		fmt.Printf("%s: %d observations (%s → %s)\n",
			args[0], len(points),
			points[0].Date.Format("2006-01-02"),
			points[len(points)-1].Date.Format("2006-01-02"))
		for _, p := range points {
			fmt.Printf("%s  %12.4f\n", p.Date.Format("2006-01-02"), p.Close)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("url", "", "price archive base URL (overrides config)")
	fetchCmd.Flags().Bool("returns", false, "print one-step log returns instead of prices")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and solver defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  quantbench — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:  %s (%s)\n", version, commit)
		fmt.Println()
		fmt.Println("  Solver:")
		fmt.Printf("    Seeds:          %.4f / %.4f\n", cfg.Solver.SeedLow, cfg.Solver.SeedHigh)
		fmt.Printf("    Tolerance:      %g\n", cfg.Solver.Tolerance)
		fmt.Printf("    Max iterations: %d\n", cfg.Solver.MaxIterations)
		fmt.Println("  Lattice:")
		fmt.Printf("    States:         %d\n", cfg.Lattice.States)
		fmt.Printf("    Method:         %s\n", cfg.Lattice.Method)
		fmt.Printf("    Dt:             %g\n", cfg.Lattice.Dt)
		fmt.Println("  Data:")
		archive := cfg.Data.HistoryURL
		if archive == "" {
			archive = "(not configured)"
		}
		fmt.Printf("    Price archive:  %s\n", archive)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Shared flag helpers ---

func addSecurityFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("coupon", 0, "annual coupon rate as a fraction (0.05 = 5%)")
	cmd.Flags().Float64("par", 100, "par value")
	cmd.Flags().Int("freq", 2, "coupon payments per year")
	cmd.Flags().String("term", "", `maturity term label, e.g. "2-Year" or "26-Week"`)
	cmd.Flags().Float64("years", 0, "maturity in fractional years (alternative to --term)")
}

func addRatesFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "file with one growth rate per line")
	cmd.Flags().String("returns", "", "comma-separated growth rates")
}

func addLatticeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("states", 0, "number of lattice states (default from config)")
	cmd.Flags().String("method", "", "edge method: quantile or equal-width (default from config)")
	cmd.Flags().Float64("dt", 0, "time step the factors are scaled by (default from config)")
}

func securityFromFlags(cmd *cobra.Command) (models.CouponSecurity, error) {
	coupon, _ := cmd.Flags().GetFloat64("coupon")
	par, _ := cmd.Flags().GetFloat64("par")
	freq, _ := cmd.Flags().GetInt("freq")

	if par <= 0 {
		return models.CouponSecurity{}, fmt.Errorf("par value must be positive")
	}
	if coupon < 0 {
		return models.CouponSecurity{}, fmt.Errorf("coupon rate cannot be negative")
	}
	return models.CouponSecurity{
		CouponRate:      coupon,
		ParValue:        par,
		PaymentsPerYear: freq,
	}, nil
}

func termFromFlags(cmd *cobra.Command) (float64, error) {
	label, _ := cmd.Flags().GetString("term")
	years, _ := cmd.Flags().GetFloat64("years")

	if label != "" {
		return utils.ParseTerm(label)
	}
	if years > 0 {
		return years, nil
	}
	return 0, fmt.Errorf("provide --term or --years")
}

func ratesFromFlags(cmd *cobra.Command) ([]float64, error) {
	file, _ := cmd.Flags().GetString("file")
	list, _ := cmd.Flags().GetString("returns")

	switch {
	case file != "":
		return readRatesFile(file)
	case list != "":
		return parseRatesList(list)
	default:
		return nil, fmt.Errorf("provide --file or --returns")
	}
}

func buildLatticeFromFlags(cmd *cobra.Command, rates []float64) (models.LatticeSummary, error) {
	states, _ := cmd.Flags().GetInt("states")
	method, _ := cmd.Flags().GetString("method")
	dt, _ := cmd.Flags().GetFloat64("dt")

	if states == 0 {
		states = cfg.Lattice.States
	}
	if method == "" {
		method = cfg.Lattice.Method
	}
	if dt == 0 {
		dt = cfg.Lattice.Dt
	}
	return lattice.Build(rates, states, dt, lattice.Method(method))
}

func solverOptions() bond.SolverOptions {
	return bond.SolverOptions{
		SeedLow:       cfg.Solver.SeedLow,
		SeedHigh:      cfg.Solver.SeedHigh,
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: cfg.Solver.MaxIterations,
	}
}

// readRatesFile parses one growth rate per line, skipping blanks and
// comment lines. Unparseable values become NaN so the lattice builder's
// cleaning pass can account for them.
func readRatesFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rates file: %w", err)
	}
	defer f.Close()

	var rates []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			v = math.NaN()
		}
		rates = append(rates, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}
	return rates, nil
}

func parseRatesList(list string) ([]float64, error) {
	parts := strings.Split(list, ",")
	rates := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad growth rate %q: %w", p, err)
		}
		rates = append(rates, v)
	}
	return rates, nil
}

func printLattice(s models.LatticeSummary) {
	fmt.Printf("Lattice: %d states, %d observations, method=%s, dt=%g\n",
		s.States(), s.SampleSize(), s.Method, s.Dt)
	fmt.Printf("%-6s  %12s  %12s  %8s  %8s\n", "state", "range", "avg factor", "freq", "count")
	for j := 0; j < s.States(); j++ {
		rng := fmt.Sprintf("[%.4f,%.4f", s.Edges[j], s.Edges[j+1])
		if j == s.States()-1 {
			rng += "]"
		} else {
			rng += ")"
		}
		factor := "—"
		if !math.IsNaN(s.AvgFactor[j]) {
			factor = fmt.Sprintf("%.6f", s.AvgFactor[j])
		}
		fmt.Printf("%-6s  %12s  %12s  %8.4f  %8d\n", s.Labels[j], rng, factor, s.Freq[j], s.Counts[j])
	}
}
