package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "worksim-assessor"
)

type Config struct {
	Store     *StoreConfig     `mapstructure:"store"`
	AI        *AIConfig        `mapstructure:"ai"`
	Retry     *RetryConfig     `mapstructure:"retry"`
	Rubrics   *RubricsConfig   `mapstructure:"rubrics"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	DSNFile     string `mapstructure:"dsn-file"`
	AutoMigrate bool   `mapstructure:"auto-migrate"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	NarrativeModel string `mapstructure:"narrative-model"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
	VideoMIMEType  string `mapstructure:"video-mime-type"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max-attempts"`
	BaseDelay   time.Duration `mapstructure:"base-delay"`
	MaxDelay    time.Duration `mapstructure:"max-delay"`
}

type RubricsConfig struct {
	Dir               string `mapstructure:"dir"`
	DefaultRoleFamily string `mapstructure:"default-role-family"`
}

type EmbeddingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	AMQPURL string        `mapstructure:"amqp-url"`
	Queue   string        `mapstructure:"queue"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "worksim-assessor scores work-simulation assessments and evaluates session recordings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"store.dsn-file":         "WORKSIM_DSN_FILE",
		"embedding.amqp-url":     "WORKSIM_AMQP_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("store.driver", "postgres")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-log-length", 500)
	viper.SetDefault("ai.gemini.video-mime-type", "video/mp4")
	viper.SetDefault("retry.max-attempts", 3)
	viper.SetDefault("retry.base-delay", time.Second)
	viper.SetDefault("retry.max-delay", 30*time.Second)
	viper.SetDefault("embedding.timeout", 30*time.Second)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is worksim-assessor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Without an explicit --config a missing file means defaults and environment only.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Retry == nil {
		config.Retry = &RetryConfig{}
	}
	if config.Rubrics == nil {
		config.Rubrics = &RubricsConfig{}
	}
	if config.Embedding == nil {
		config.Embedding = &EmbeddingConfig{}
	}

	return config, nil
}
