package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apartment-portal/internal/config"
	"apartment-portal/internal/consistency"
	"apartment-portal/internal/database"
	"apartment-portal/internal/dataset"
	"apartment-portal/internal/models"
)

var (
	configPath     string
	dataDir        string
	dataSource     string
	missingPolicy  string
	exampleLimit   int
	jsonOutput     bool
	failOnFindings bool
)

var rootCmd = &cobra.Command{
	Use:   "check-data",
	Short: "Cross-check the rankings dataset against geometries and simulations",
	Long: "Loads the three datasets and reports rankings rows missing from geometries or simulations " +
		"and rows whose building or floor disagrees with the geometry table.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		path := configPath
		if path == "" {
			path = config.GetEnv("CONFIG_PATH", "config/config.yaml")
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return eris.Wrapf(err, "load config %s", path)
		}
		if dataDir != "" {
			cfg.Data.Dir = dataDir
		}
		if dataSource != "" {
			cfg.Data.Source = dataSource
		}
		// data.missing_policy configures the server; the check defaults to fatal
		cfg.Data.MissingPolicy = missingPolicy
		if cmd.Flags().Changed("examples") {
			cfg.Consistency.ExampleLimit = exampleLimit
		}
		if err := config.InitLogger(cfg.Logging); err != nil {
			return eris.Wrap(err, "init logger")
		}
		defer func() { _ = zap.L().Sync() }()

		report, err := run(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return eris.Wrap(err, "encode report")
			}
		} else {
			printReport(cmd.OutOrStdout(), report)
		}

		if failOnFindings && !report.Consistent() {
			return eris.New("datasets are inconsistent")
		}
		return nil
	},
}

// run loads the datasets with cfg.Data.MissingPolicy and checks them
func run(ctx context.Context, cfg *config.Config) (*models.ConsistencyReport, error) {
	policy, err := dataset.ParseMissingPolicy(cfg.Data.MissingPolicy)
	if err != nil {
		return nil, err
	}

	source, err := database.OpenSource(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "open data source")
	}
	defer func() {
		if err := source.Close(); err != nil {
			zap.L().Warn("close data source", zap.Error(err))
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.GetLoadTimeout())
	defer cancel()

	loader := dataset.NewLoader(source, policy)
	res := cfg.Data.Resources
	tables, err := loader.LoadAll(loadCtx, res.Rankings, res.Geometries, res.Simulations)
	if err != nil {
		return nil, eris.Wrap(err, "load datasets")
	}

	report := consistency.Check(tables[0], tables[1], tables[2], consistency.Options{
		ExampleLimit: cfg.Consistency.ExampleLimit,
	})
	consistency.Log(zap.L().Named("check"), report)
	return report, nil
}

func printReport(w io.Writer, r *models.ConsistencyReport) {
	fmt.Fprintf(w, "Loaded:\n  Rankings: %d\n  Geometries: %d\n  Simulations: %d\n\n",
		r.RankingRows, r.GeometryRows, r.SimulationRows)

	for _, id := range r.MissingInGeometryExamples {
		fmt.Fprintf(w, "Missing in Geometries: %s\n", id)
	}
	for _, m := range r.MetadataMismatchExamples {
		fmt.Fprintf(w, "Mismatch Metadata for %s:\n  Rankings: B=%s, F=%s\n  Geometries: B=%s, F=%s\n",
			m.ApartmentID, m.RankingBuilding, m.RankingFloor, m.GeometryBuilding, m.GeometryFloor)
	}
	for _, id := range r.MissingInSimulationExamples {
		fmt.Fprintf(w, "Missing in Simulations: %s\n", id)
	}

	fmt.Fprintf(w, "\nAnalysis Result:\n")
	fmt.Fprintf(w, "  Apartments in Rankings missing from Geometries: %d\n", r.MissingInGeometry)
	fmt.Fprintf(w, "  Apartments in Rankings missing from Simulations: %d\n", r.MissingInSimulation)
	fmt.Fprintf(w, "  Metadata Mismatches (Building/Floor): %d\n", r.MetadataMismatch)
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config (default $CONFIG_PATH or config/config.yaml)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the dataset files")
	rootCmd.Flags().StringVar(&dataSource, "source", "", "dataset source: files, s3, postgres, sqlite, mysql")
	rootCmd.Flags().StringVar(&missingPolicy, "missing-policy", string(dataset.MissingFatal), "degrade or fatal when a dataset is missing")
	rootCmd.Flags().IntVar(&exampleLimit, "examples", consistency.DefaultExampleLimit, "examples printed per finding category")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	rootCmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit non-zero when any finding is reported")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "check-data:", err)
		os.Exit(1)
	}
}
