package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fit-agent/internal/agent"
	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/ai/gemini"
	"github.com/spigell/fit-agent/internal/decision"
	"github.com/spigell/fit-agent/internal/logger"
	"github.com/spigell/fit-agent/internal/server"
)

const (
	app       = "fit-agent"
	envPrefix = "FIT_AGENT"
)

// Config is the whole fit-agent configuration as decoded by viper.
type Config struct {
	SkillGraphFile string           `mapstructure:"skill-graph-file"`
	Decision       agent.Config     `mapstructure:"decision"`
	AI             AIConfig         `mapstructure:"ai"`
	Server         server.Config    `mapstructure:"server"`
	Headhunter     HeadhunterConfig `mapstructure:"headhunter"`
}

// AIConfig configures the model collaborators.
type AIConfig struct {
	Gemini  gemini.Config `mapstructure:"gemini"`
	Rewrite RewriteConfig `mapstructure:"rewrite"`
}

// RewriteConfig configures the resume rewrite safety filter.
type RewriteConfig struct {
	ForbiddenWords []string `mapstructure:"forbidden-words"`
}

// HeadhunterConfig configures the hh.ru client used by evaluate --vacancy.
type HeadhunterConfig struct {
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fit-agent decides whether a resume should apply, review or skip a job posting",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fit-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every config key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	thresholds := decision.DefaultThresholds()

	v.SetDefault("skill-graph-file", "")

	v.SetDefault("decision.apply-threshold", thresholds.Apply)
	v.SetDefault("decision.review-semantic-threshold", thresholds.ReviewSemantic)
	v.SetDefault("decision.review-deterministic-threshold", thresholds.ReviewDeterministic)
	v.SetDefault("decision.deterministic-weight", thresholds.DeterministicWeight)
	v.SetDefault("decision.semantic-weight", thresholds.SemanticWeight)
	v.SetDefault("decision.rewrite-confidence", agent.DefaultConfig().RewriteConfidence)

	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.fallback-models", []string{"gemini-2.5-flash-lite"})
	v.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("ai.rewrite.forbidden-words", ai.DefaultForbiddenWords)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api-key-file", "")
	v.SetDefault("server.api-key", "")
	v.SetDefault("server.rate-limit", 1.0)
	v.SetDefault("server.burst", 5)

	v.SetDefault("headhunter.token-file", "")
	v.SetDefault("headhunter.user-agent", "")

	if err := v.BindEnv("headhunter.token-file", envPrefix+"_HEADHUNTER_TOKEN_FILE", hhTokenFileEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", hhTokenFileEnv, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error. A missing default file is fine.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return l
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
