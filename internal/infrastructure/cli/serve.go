package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/cardflow/internal/infrastructure/config"
	"github.com/felixgeelhaar/cardflow/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var (
	serveRoster   string
	serveFeedAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot against the Telegram Bot API",
	Long: `Run the bot until interrupted.

The bot token comes from CARDFLOW_TOKEN or telegram.token in the config file.
A roster file pre-populates projects and is reloaded when it changes:

  projects:
    - chat_id: -1001234567890
      name: Site
      creator: "@boss"
      developers: ["@dev1"]
      testers: ["@test1"]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, ".")
		if err != nil {
			return err
		}
		if serveRoster != "" {
			cfg.RosterFile = serveRoster
		}
		if serveFeedAddr != "" {
			cfg.Feed.Addr = serveFeedAddr
		}

		logger, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return MapError(err)
		}

		services, err := wiring.BuildServices(cfg, logger)
		if err != nil {
			return MapError(err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("cardflow starting", "version", Version, "config", cfg.Source, "roster", cfg.RosterFile, "feed", cfg.Feed.Addr)
		return services.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveRoster, "roster", "", "roster seed file (overrides roster_file)")
	serveCmd.Flags().StringVar(&serveFeedAddr, "feed-addr", "", "listen address for the websocket event feed")
	RootCmd.AddCommand(serveCmd)
}
