package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loreweaver/keeper/go/clients/analytics_client"
	"github.com/loreweaver/keeper/go/clients/game_api_client"
	"github.com/loreweaver/keeper/go/internal/channel"
	"github.com/loreweaver/keeper/go/internal/credentials"
	"github.com/loreweaver/keeper/go/internal/formstore"
	"github.com/loreweaver/keeper/go/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("KEEPER_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	creds := credentials.NewFileStore(config.Data.Dir)
	ctx := context.Background()
	if token := os.Getenv("KEEPER_TOKEN"); token != "" {
		if err := creds.SetToken(ctx, token); err != nil {
			log.Fatal().Err(err).Msg("failed to store token")
		}
	}

	token, err := creds.Token(ctx)
	if err != nil {
		log.Fatal().Msg("no credential found; set KEEPER_TOKEN")
	}

	api := game_api_client.NewGameApiClient(config.API.BaseURL, token)

	channelConfig := channel.DefaultConfig(config.Channel.URL)
	if config.Channel.PingInterval > 0 {
		channelConfig.PingInterval = config.Channel.PingInterval
	}

	opts := session.Options{
		Forms: formstore.NewStore(config.Data.Dir),
	}
	if config.Analytics.BaseURL != "" {
		opts.Analytics = analytics_client.NewAnalyticsClient(config.Analytics.BaseURL)
	}

	store := session.NewStore(api, creds, session.ChannelDialer(channelConfig), opts)
	defer store.ClearSession()

	// Print timeline entries as they land.
	var printMu sync.Mutex
	printed := 0
	resetPrinted := func() {
		printMu.Lock()
		printed = 0
		printMu.Unlock()
	}
	store.Subscribe(func(st session.State) {
		printMu.Lock()
		defer printMu.Unlock()
		if printed > len(st.Messages) {
			printed = 0
		}
		for ; printed < len(st.Messages); printed++ {
			m := st.Messages[printed]
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
	})

	if err := store.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}

	fmt.Println("commands: /new, /load <id>, /list, /roll <dice>, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue

		case line == "/quit":
			return

		case line == "/new":
			if err := store.CreateSession(ctx); err != nil {
				log.Error().Err(err).Msg("create failed")
			}

		case strings.HasPrefix(line, "/load "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/load "))
			resetPrinted()
			if err := store.LoadSession(ctx, id); err != nil {
				log.Error().Err(err).Msg("load failed")
			}

		case line == "/list":
			sessions, err := store.ListSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("list failed")
				continue
			}
			for _, info := range sessions {
				fmt.Printf("%s  %s\n", info.SessionID, info.Title)
			}

		case strings.HasPrefix(line, "/roll "):
			dice := strings.TrimSpace(strings.TrimPrefix(line, "/roll "))
			if _, err := store.RollDice(ctx, dice); err != nil {
				log.Error().Err(err).Msg("roll failed")
			}

		default:
			if err := store.SendMessage(ctx, line); err != nil {
				log.Error().Err(err).Msg("send failed")
			}
		}
	}
}
