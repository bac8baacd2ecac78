package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/regswap/internal/config"
	"github.com/zjrosen/regswap/internal/log"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "regswap",
	Short: "Scoped substitution of named resources in a shared registry",
	Long: `regswap temporarily substitutes named resources inside a shared dotted
namespace and guarantees the namespace is restored to its exact prior
state afterward, even under nested and repeated substitutions.

Scenarios describe an initial registry and a sequence of substitutions;
the run command executes them and verifies restoration.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .regswap/config.yaml or ~/.config/regswap/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("log_file", defaults.LogFile)
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.path", defaults.History.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .regswap/config.yaml (current directory)
		// 2. ~/.config/regswap/config.yaml (user config)
		if _, err := os.Stat(".regswap/config.yaml"); err == nil {
			viper.SetConfigFile(".regswap/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "regswap"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .regswap/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".regswap/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func initLogging() {
	if !cfg.Debug && os.Getenv("REGSWAP_DEBUG") == "" {
		return
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.Defaults().LogFile
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return
	}
	if _, err := log.Init(logPath); err == nil {
		log.Info(log.CatConfig, "debug logging enabled", "path", logPath)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
