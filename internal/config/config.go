package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("stridedash version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Weather WeatherConfig `mapstructure:"weather"`
}

type ServerConfig struct {
	Host          string   `mapstructure:"host"`
	Port          int      `mapstructure:"port"`
	SessionCookie string   `mapstructure:"session_cookie"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// OAuthConfig describes the authorization-code flow against the provider.
// ClientSecret is only ever used in the server-side token exchange.
type OAuthConfig struct {
	ClientID      string        `mapstructure:"client_id"`
	ClientSecret  string        `mapstructure:"client_secret"`
	RedirectURI   string        `mapstructure:"redirect_uri"`
	Scopes        []string      `mapstructure:"scopes"`
	AuthURL       string        `mapstructure:"auth_url"`
	TokenURL      string        `mapstructure:"token_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RefreshMargin time.Duration `mapstructure:"refresh_margin"`
	Keychain      bool          `mapstructure:"keychain"`
}

type FeedConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PerPage         int           `mapstructure:"per_page"`
	SportLabelsFile string        `mapstructure:"sport_labels_file"`
}

type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("host", "", "Server host")
	pflag.Int("port", 0, "Server port")
	pflag.String("redirect-uri", "", "OAuth redirect URI registered with the provider")
	// Note: no pflag.Parse() here as it's called in main.go
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8501)
	viper.SetDefault("server.session_cookie", "stridedash_session")
	viper.SetDefault("server.allow_origins", []string{})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.disable_stacktrace", false)
	viper.SetDefault("logging.output_path", "")
	viper.SetDefault("logging.disable_console", false)

	// Defaults register the keys so environment-only values survive Unmarshal.
	viper.SetDefault("oauth.client_id", "")
	viper.SetDefault("oauth.client_secret", "")
	viper.SetDefault("oauth.redirect_uri", "")
	viper.SetDefault("oauth.keychain", false)
	viper.SetDefault("oauth.auth_url", "https://www.strava.com/oauth/authorize")
	viper.SetDefault("oauth.token_url", "https://www.strava.com/oauth/token")
	viper.SetDefault("oauth.scopes", []string{"read_all", "profile:read_all", "activity:read_all"})
	viper.SetDefault("oauth.timeout", 10*time.Second)
	viper.SetDefault("oauth.refresh_margin", time.Minute)

	viper.SetDefault("feed.base_url", "https://www.strava.com/api/v3")
	viper.SetDefault("feed.timeout", 15*time.Second)
	viper.SetDefault("feed.per_page", 100)
	viper.SetDefault("feed.sport_labels_file", "")

	viper.SetDefault("weather.base_url", "https://wttr.in")
	viper.SetDefault("weather.timeout", 10*time.Second)
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("STRIDEDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	// Load ./config.yaml when present; env vars and flags cover the rest
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/stridedash")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Flags override overlapping config keys
	if host := viper.GetString("host"); host != "" {
		config.Server.Host = host
	}
	if port := viper.GetInt("port"); port != 0 {
		config.Server.Port = port
	}
	if redirect := viper.GetString("redirect-uri"); redirect != "" {
		config.OAuth.RedirectURI = redirect
	}

	if config.OAuth.RedirectURI == "" {
		config.OAuth.RedirectURI = fmt.Sprintf("http://%s:%d/auth/callback", config.Server.Host, config.Server.Port)
	}

	if config.Feed.PerPage <= 0 || config.Feed.PerPage > 200 {
		return nil, fmt.Errorf("feed.per_page must be between 1 and 200, got %d", config.Feed.PerPage)
	}

	return &config, nil
}
