package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/stridedash/stridedash/internal/auth"
	authhandlers "github.com/stridedash/stridedash/internal/auth/handlers"
	"github.com/stridedash/stridedash/internal/auth/store"
	"github.com/stridedash/stridedash/internal/config"
	"github.com/stridedash/stridedash/internal/feed"
	"github.com/stridedash/stridedash/internal/feed/stats"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/server"
	"github.com/stridedash/stridedash/internal/server/handler"
	"github.com/stridedash/stridedash/internal/weather"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stridedash",
	Short: "Personal fitness dashboard backend",
	Long: `Stridedash authenticates against the fitness provider with the OAuth2
authorization-code flow, keeps the access token fresh for the session, and
serves the activity history and derived statistics as a JSON API.`,
	Run: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.Flags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printfln("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		pterm.Error.Printfln("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		fx.Provide(
			func(cfg *config.Config) *config.OAuthConfig { return &cfg.OAuth },
			func(cfg *config.Config) *config.FeedConfig { return &cfg.Feed },
			func(cfg *config.Config) *config.WeatherConfig { return &cfg.Weather },
			newAuthHandler,
			newAPIHandler,
		),
		store.Module,
		auth.Module,
		feed.Module,
		weather.Module,
		server.Module,
	)
	app.Run()
}

func newAuthHandler(cfg *config.Config, coordinator *auth.Coordinator, sessions *auth.Registry) *authhandlers.Handler {
	return authhandlers.NewHandler(coordinator, sessions, cfg.Server.SessionCookie)
}

func newAPIHandler(cfg *config.Config, coordinator *auth.Coordinator, feedClient *feed.Client, weatherClient *weather.Client) (*handler.Handler, error) {
	labels, err := stats.LoadSportLabels(cfg.Feed.SportLabelsFile)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(coordinator, feedClient, weatherClient, labels), nil
}
