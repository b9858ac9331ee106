package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"media-tracker/internal/pipeline"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           "tracker",
		Short:         "Track press and news coverage for a set of keywords",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute は.envと設定を読み込んでからコマンドを実行する
func Execute() error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env file not loaded: %v (using environment variables only)\n", err)
	}

	cobra.OnInitialize(initConfig)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log encoding (console|json)")
	rootCmd.PersistentFlags().String("categories", "", "YAML file with the ordered category mapping")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("category_file", rootCmd.PersistentFlags().Lookup("categories"))

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCategoriesCommand())
}

// initConfig はデフォルト値・設定ファイル・環境変数をviperに登録する
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(pipeline.DefaultConfig())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: config file not read: %v\n", err)
		}
	}

	// Notion の既存キー名はプレフィックスなしでも受け付ける
	_ = viper.BindEnv("output.notion_database_id", "TRACKER_OUTPUT_NOTION_DATABASE_ID", "NOTION_DATABASE_ID")
	_ = viper.BindEnv("output.notion_page_id", "TRACKER_OUTPUT_NOTION_PAGE_ID", "NOTION_PAGE_ID")
}

func setDefaults(d pipeline.TrackerConfig) {
	viper.SetDefault("search.backend", d.Search.Backend)
	viper.SetDefault("search.endpoint", d.Search.Endpoint)
	viper.SetDefault("search.page_size", d.Search.PageSize)
	viper.SetDefault("search.max_pages", d.Search.MaxPages)
	viper.SetDefault("search.delay_min", d.Search.DelayMin)
	viper.SetDefault("search.delay_max", d.Search.DelayMax)
	viper.SetDefault("search.timeout", d.Search.Timeout)
	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	viper.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	viper.SetDefault("output.out", "")
	viper.SetDefault("output.xlsx", "")
	viper.SetDefault("output.notion_clip", false)
	viper.SetDefault("email.send", false)
	viper.SetDefault("log_level", d.LogLevel)
	viper.SetDefault("log_format", "console")
	viper.SetDefault("category_file", "")
}

// loadConfig はviperの値をTrackerConfigに展開して検証する
func loadConfig() (pipeline.TrackerConfig, error) {
	cfg := pipeline.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogger() error {
	l, err := pipeline.NewLogger(viper.GetString("log_level"), viper.GetString("log_format"))
	if err != nil {
		return err
	}
	pipeline.SetLogger(l)
	return nil
}

// loadCategories は --categories が指定されていればYAMLから読み込む
func loadCategories(path string) ([]pipeline.Category, error) {
	if path == "" {
		return pipeline.DefaultCategories, nil
	}
	return pipeline.LoadCategories(path)
}
