// Package config loads pipeline configuration from a YAML file,
// environment variables and a local .env file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	OpenAI    OpenAI    `mapstructure:"openai"`
	WordPress WordPress `mapstructure:"wordpress"`
	Feeds     Feeds     `mapstructure:"feeds"`
	Rewrite   Rewrite   `mapstructure:"rewrite"`
	Quality   Quality   `mapstructure:"quality"`
	SEO       SEO       `mapstructure:"seo"`
	Links     Links     `mapstructure:"links"`
	Dedup     Dedup     `mapstructure:"dedup"`
	Images    Images    `mapstructure:"images"`
	Publish   Publish   `mapstructure:"publish"`
	Logging   Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	DataDir  string `mapstructure:"data_dir"`
	Timezone string `mapstructure:"timezone"`
}

// OpenAI holds the LLM provider configuration
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// WordPress holds the publishing target configuration
type WordPress struct {
	BaseURL         string `mapstructure:"base_url"`
	Username        string `mapstructure:"username"`
	AppPassword     string `mapstructure:"app_password"`
	TwoStepPublish  bool   `mapstructure:"two_step_publish"`
	PublishRetries  int    `mapstructure:"publish_retries"`
	RetryBaseMillis int    `mapstructure:"retry_base_millis"`
}

// Feeds holds candidate collection configuration
type Feeds struct {
	CatalogPath string  `mapstructure:"catalog_path"`
	RecentHours int     `mapstructure:"recent_hours"`
	MaxPerRun   int     `mapstructure:"max_per_run"`
	RomaniaMix  float64 `mapstructure:"romania_mix"`
}

// Rewrite holds generation configuration
type Rewrite struct {
	MinWords        int     `mapstructure:"min_words"`
	MaxAttempts     int     `mapstructure:"max_attempts"`
	BaseTemperature float64 `mapstructure:"base_temperature"`
	RoleFactCheck   bool    `mapstructure:"role_fact_check"`
}

// Quality holds acceptance gate configuration
type Quality struct {
	MinWords           int  `mapstructure:"min_words"`
	MinLeadWords       int  `mapstructure:"min_lead_words"`
	MetaDescriptionMin int  `mapstructure:"meta_description_min"`
	MetaDescriptionMax int  `mapstructure:"meta_description_max"`
	ContextWordMax     int  `mapstructure:"context_word_max"`
	BlockPromo         bool `mapstructure:"block_promo"`
}

// SEO holds title and metadata limits
type SEO struct {
	TitleMaxChars    int `mapstructure:"title_max_chars"`
	SEOTitleMaxChars int `mapstructure:"seo_title_max_chars"`
	MaxTags          int `mapstructure:"max_tags"`
}

// Links holds internal-link injection configuration
type Links struct {
	Required    bool `mapstructure:"required"`
	MinLinks    int  `mapstructure:"min_links"`
	MaxLinks    int  `mapstructure:"max_links"`
	TargetLimit int  `mapstructure:"target_limit"`
}

// Dedup holds duplicate detection configuration
type Dedup struct {
	WindowHours     int     `mapstructure:"window_hours"`
	OverlapRatio    float64 `mapstructure:"overlap_ratio"`
	MinOverlapCount int     `mapstructure:"min_overlap_count"`
}

// Images holds featured image configuration
type Images struct {
	Required       bool `mapstructure:"required"`
	UseDynamic     bool `mapstructure:"use_dynamic"`
	DefaultMediaID int  `mapstructure:"default_media_id"`
	MinBytes       int  `mapstructure:"min_bytes"`
	ScrapeEnabled  bool `mapstructure:"scrape_enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// Publish holds run scheduling configuration
type Publish struct {
	MaxPerRun        int  `mapstructure:"max_per_run"`
	WindowEnabled    bool `mapstructure:"window_enabled"`
	WindowStartHour  int  `mapstructure:"window_start_hour"`
	WindowEndHour    int  `mapstructure:"window_end_hour"`
	FallbackEnabled  bool `mapstructure:"fallback_enabled"`
	HistoryPruneDays int  `mapstructure:"history_prune_days"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".autopress")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.SetEnvPrefix("AUTOPRESS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.data_dir", ".autopress")
	viper.SetDefault("app.timezone", "Europe/Bucharest")

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4.1-mini")
	viper.SetDefault("openai.base_url", "")

	// WordPress defaults
	viper.SetDefault("wordpress.two_step_publish", false)
	viper.SetDefault("wordpress.publish_retries", 3)
	viper.SetDefault("wordpress.retry_base_millis", 2500)

	// Feed collection defaults
	viper.SetDefault("feeds.recent_hours", 24)
	viper.SetDefault("feeds.max_per_run", 12)
	viper.SetDefault("feeds.romania_mix", 0.8)

	// Rewrite defaults
	viper.SetDefault("rewrite.min_words", 450)
	viper.SetDefault("rewrite.max_attempts", 3)
	viper.SetDefault("rewrite.base_temperature", 0.4)
	viper.SetDefault("rewrite.role_fact_check", true)

	// Quality gate defaults
	viper.SetDefault("quality.min_words", 350)
	viper.SetDefault("quality.min_lead_words", 18)
	viper.SetDefault("quality.meta_description_min", 130)
	viper.SetDefault("quality.meta_description_max", 160)
	viper.SetDefault("quality.context_word_max", 2)
	viper.SetDefault("quality.block_promo", true)

	// SEO defaults
	viper.SetDefault("seo.title_max_chars", 110)
	viper.SetDefault("seo.seo_title_max_chars", 60)
	viper.SetDefault("seo.max_tags", 5)

	// Internal link defaults
	viper.SetDefault("links.required", true)
	viper.SetDefault("links.min_links", 1)
	viper.SetDefault("links.max_links", 2)
	viper.SetDefault("links.target_limit", 20)

	// Dedup defaults
	viper.SetDefault("dedup.window_hours", 72)
	viper.SetDefault("dedup.overlap_ratio", 0.8)
	viper.SetDefault("dedup.min_overlap_count", 4)

	// Image defaults
	viper.SetDefault("images.required", false)
	viper.SetDefault("images.use_dynamic", false)
	viper.SetDefault("images.default_media_id", 0)
	viper.SetDefault("images.min_bytes", 12000)
	viper.SetDefault("images.scrape_enabled", true)
	viper.SetDefault("images.timeout_seconds", 12)

	// Publish defaults
	viper.SetDefault("publish.max_per_run", 2)
	viper.SetDefault("publish.window_enabled", false)
	viper.SetDefault("publish.window_start_hour", 7)
	viper.SetDefault("publish.window_end_hour", 22)
	viper.SetDefault("publish.fallback_enabled", true)
	viper.SetDefault("publish.history_prune_days", 30)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("openai.api_key", []string{
		"OPENAI_API_KEY",
		"AUTOPRESS_OPENAI_API_KEY",
	})
	bindEnvKeys("openai.base_url", []string{
		"OPENAI_BASE_URL",
	})
	bindEnvKeys("wordpress.base_url", []string{
		"WP_URL",
		"WORDPRESS_URL",
	})
	bindEnvKeys("wordpress.username", []string{
		"WP_USER",
		"WORDPRESS_USER",
	})
	bindEnvKeys("wordpress.app_password", []string{
		"WP_APP_PASSWORD",
		"WORDPRESS_APP_PASSWORD",
	})
	bindEnvKeys("app.data_dir", []string{
		"AUTOPRESS_DATA_DIR",
	})
	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig ensures required configuration is present and sane
func validateConfig(config *Config) error {
	var problems []string
	if config.OpenAI.APIKey == "" {
		problems = append(problems, "openai.api_key is required (set OPENAI_API_KEY)")
	}
	if config.WordPress.BaseURL == "" {
		problems = append(problems, "wordpress.base_url is required (set WP_URL)")
	}
	if config.WordPress.Username == "" || config.WordPress.AppPassword == "" {
		problems = append(problems, "wordpress credentials are required (set WP_USER and WP_APP_PASSWORD)")
	}
	if config.Feeds.RomaniaMix < 0 || config.Feeds.RomaniaMix > 1 {
		problems = append(problems, "feeds.romania_mix must be between 0 and 1")
	}
	if config.Quality.MetaDescriptionMin >= config.Quality.MetaDescriptionMax {
		problems = append(problems, "quality.meta_description_min must be below meta_description_max")
	}
	if config.Publish.WindowStartHour < 0 || config.Publish.WindowStartHour > 23 ||
		config.Publish.WindowEndHour < 0 || config.Publish.WindowEndHour > 23 {
		problems = append(problems, "publish window hours must be between 0 and 23")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Convenience accessors
func GetOpenAIAPIKey() string { return Get().OpenAI.APIKey }
func GetOpenAIModel() string  { return Get().OpenAI.Model }
func GetDataDir() string      { return Get().App.DataDir }
func GetWordPress() WordPress { return Get().WordPress }
func GetLoggingLevel() string { return Get().Logging.Level }

// Reset clears the cached configuration, forcing the next Get to
// reload. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}
