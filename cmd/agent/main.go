// Command agent joins a room as a headless participant and logs the live
// roster: a browserless way to exercise the whole client path.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avoran/huddle/internal/adapters/livekit"
	"github.com/avoran/huddle/internal/app"
	"github.com/avoran/huddle/internal/config"
	"github.com/avoran/huddle/internal/core"
	"github.com/avoran/huddle/internal/domain"
)

func main() {
	var (
		room     = flag.String("room", "", "room name to join")
		identity = flag.String("identity", "", "participant identity (random when empty)")
		name     = flag.String("name", "huddle agent", "participant display name")
		host     = flag.Bool("host", false, "join with the host role")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *room == "" {
		log.Fatal().Msg("missing -room")
	}
	if *identity == "" {
		*identity = "agent-" + uuid.NewString()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	role := domain.RoleGuest
	if *host {
		role = domain.RoleHost
	}
	issuer := app.NewTokenIssuer(cfg.APIKey, cfg.APISecret, cfg.TokenTTL)
	token, err := issuer.IssueJoinToken(app.JoinTokenParams{
		Room:     domain.RoomName(*room),
		Identity: domain.Identity(*identity),
		Name:     *name,
		Role:     role,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue token")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sync := core.NewSynchronizer(nil)
	unsubscribe := sync.Updates().Subscribe(func(vm core.ViewModel) {
		names := make([]string, 0, len(vm.Participants))
		for _, p := range vm.Participants {
			names = append(names, string(p.Identity))
		}
		log.Info().Str("room", string(vm.Room)).Str("state", string(vm.State)).
			Str("view", string(vm.Variant)).Str("roster", strings.Join(names, ",")).Msg("roster update")
	})
	defer unsubscribe()

	info := core.ConnectInfo{URL: cfg.LiveKitURL, Token: token, RoomName: domain.RoomName(*room)}
	if err := sync.Connect(ctx, livekit.NewSession(), info); err != nil {
		log.Fatal().Err(err).Msg("failed to join room")
	}
	log.Info().Str("room", *room).Str("identity", *identity).Msg("joined")

	<-ctx.Done()
	sync.Close()
	log.Info().Msg("left room")
}
