package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apartment-portal/internal/config"
)

var (
	appConfig *config.Config

	configPath string
	dataDir    string
	dataSource string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "apartment-api",
	Short: "Serve apartment geometry, simulation and ranking metadata",
	Long:  "Loads the geometries, simulations and apartment rankings datasets once at startup and serves them read-only over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		path := configPath
		if path == "" {
			path = config.GetEnv("CONFIG_PATH", "config/config.yaml")
		}
		c, err := config.LoadConfig(path)
		if err != nil {
			return eris.Wrapf(err, "load config %s", path)
		}

		if dataDir != "" {
			c.Data.Dir = dataDir
		}
		if dataSource != "" {
			c.Data.Source = dataSource
		}
		if port > 0 {
			c.Server.Port = port
		}
		appConfig = c

		if err := config.InitLogger(c.Logging); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Info("configuration loaded", zap.String("path", path), zap.String("source", c.Data.Source))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), appConfig)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (default $CONFIG_PATH or config/config.yaml)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the dataset files")
	rootCmd.Flags().StringVar(&dataSource, "source", "", "dataset source: files, s3, postgres, sqlite, mysql")
	rootCmd.Flags().IntVar(&port, "port", 0, "server port (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("apartment-api failed", zap.Error(err))
		os.Exit(1)
	}
}
