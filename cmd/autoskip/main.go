// Package main provides the autoskip entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/autoskip/internal/app/command"
	"github.com/osa030/autoskip/internal/app/dispatcher"
	"github.com/osa030/autoskip/internal/app/notification"
	"github.com/osa030/autoskip/internal/infra/config"
	"github.com/osa030/autoskip/internal/infra/console"
	"github.com/osa030/autoskip/internal/infra/desktop"
	"github.com/osa030/autoskip/internal/infra/logger"
	"github.com/osa030/autoskip/internal/infra/mpris"
	"github.com/osa030/autoskip/internal/infra/spotify"
	"github.com/osa030/autoskip/internal/infra/store"
)

const notificationTitle = "Autoskip"

var (
	app        = kingpin.New("autoskip", "Skip songs you do not want to hear")
	configPath = app.Flag("config", "Path to config file").Default(config.DefaultPath()).String()
	storeDir   = app.Flag("store-dir", "Directory holding settings.json and artists.json").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	runCmd  = app.Command("run", "Watch the player and read commands (default)").Default()
	noInput = runCmd.Flag("no-input", "Do not read commands from the terminal").Bool()

	// one-shot commands, keyed by full command name
	oneShot = map[string]string{}
)

func init() {
	for _, info := range command.Commands() {
		if info.Action == command.ActionHelp {
			continue
		}
		name := info.Tokens[len(info.Tokens)-1]
		cmd := app.Command(name, info.Description+" and exit (a running watcher does not see the change)")
		for _, alias := range info.Tokens[:len(info.Tokens)-1] {
			cmd.Alias(alias)
		}
		oneShot[cmd.FullCommand()] = name
	}
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	selected := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	// Load config
	zlog.Debug().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *storeDir != "" {
		cfg.Store.Dir = *storeDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if token, ok := oneShot[selected]; ok {
		err = runOnce(ctx, cfg, token)
	} else {
		err = run(ctx, stop, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		zlog.Error().Msgf("autoskip: %v", err)
		os.Exit(1)
	}
}

// components holds everything wired from the config.
type components struct {
	dispatcher *dispatcher.Dispatcher
	events     *notification.Manager
	closers    []io.Closer
}

func (c *components) Close() {
	c.events.Close()
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			zlog.Debug().Msgf("autoskip: close failed: %v", err)
		}
	}
}

// run watches the player and reads commands until interrupted.
func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config) error {
	var (
		out    io.Writer = os.Stdout
		reader *console.LineReader
	)
	if !*noInput {
		r, err := console.NewLineReader("> ")
		if err != nil {
			return err
		}
		reader = r
		out = reader.Stdout()
	}

	c, err := build(ctx, cfg, out)
	if err != nil {
		if reader != nil {
			reader.Close()
		}
		return err
	}
	defer c.Close()

	if err := c.dispatcher.Start(ctx); err != nil {
		if reader != nil {
			reader.Close()
		}
		return err
	}

	lines := make(chan string)
	if reader == nil {
		close(lines)
	} else {
		go func() {
			err := reader.Run(ctx, lines)
			if errors.Is(err, console.ErrInterrupted) {
				zlog.Debug().Msg("autoskip: interrupted")
			} else if err != nil {
				zlog.Error().Msgf("autoskip: command input failed: %v", err)
			}
			// End of input ends the program like Ctrl+C does.
			stop()
		}()
	}

	go func() {
		<-ctx.Done()
		c.dispatcher.Shutdown()
		if reader != nil {
			reader.Close()
		}
	}()

	return c.dispatcher.Run(ctx, lines)
}

// runOnce applies a single command to the current track and exits.
func runOnce(ctx context.Context, cfg *config.Config, token string) error {
	c, err := build(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Close()

	action, _ := command.Parse(token)
	if action.TrackScoped() {
		if err := c.dispatcher.Sync(ctx); err != nil {
			return err
		}
	}

	c.dispatcher.HandleCommand(ctx, token)
	return nil
}

// build loads the stores and wires the player, sinks and dispatcher.
func build(ctx context.Context, cfg *config.Config, out io.Writer) (*components, error) {
	fs := afero.NewOsFs()
	opts := store.Options{
		ReadAttempts:      cfg.Store.ReadAttempts,
		ReadRetryInterval: cfg.ReadRetryInterval(),
	}

	settings := store.NewSettingsStore(fs, cfg.SettingsPath(), opts)
	if err := settings.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}
	rules := store.NewRuleStore(fs, cfg.ArtistsPath(), opts)
	if err := rules.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to load artists")
	}

	c := &components{events: notification.NewManager()}

	notifierCfg := desktop.Config{
		AppName: cfg.Notifications.AppName,
		Timeout: time.Duration(cfg.Notifications.TimeoutMs) * time.Millisecond,
	}

	var (
		player   dispatcher.Player
		notifier *desktop.Notifier
	)
	switch cfg.Player.Backend {
	case config.BackendSpotify:
		sp, err := cfg.SpotifyPlayer()
		if err != nil {
			return nil, err
		}
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       sp.Market,
			PollInterval: time.Duration(sp.PollIntervalMs) * time.Millisecond,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		player = client

		if n, err := desktop.Dial(notifierCfg); err != nil {
			zlog.Warn().Msgf("autoskip: desktop notifications unavailable: %v", err)
		} else {
			notifier = n
			c.closers = append(c.closers, n)
		}
	default:
		m, err := cfg.MPRIS()
		if err != nil {
			return nil, err
		}
		client, err := mpris.New(m.BusName)
		if err != nil {
			return nil, err
		}
		player = client
		c.closers = append(c.closers, client)
		notifier = desktop.New(client.Conn(), notifierCfg)
	}
	zlog.Debug().Msgf("autoskip: using %s player backend", cfg.Player.Backend)

	c.events.Subscribe(console.NewPresenter(out))

	cmdOpts := []command.Option{command.WithNotificationTitle(notificationTitle)}
	if notifier != nil {
		c.events.Subscribe(notifier.Sink())
		cmdOpts = append(cmdOpts, command.WithNotifier(notifier))
	}

	c.dispatcher = dispatcher.New(
		dispatcher.Config{ConnectRetryInterval: cfg.ConnectRetryInterval()},
		rules, settings, player, c.events, cmdOpts...,
	)
	return c, nil
}
