package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"avatarstream/internal/api"
	"avatarstream/internal/config"
	"avatarstream/internal/coordinator"
	"avatarstream/internal/domain"
	"avatarstream/internal/livekit"
	"avatarstream/internal/room"
)

const helpText = `avatarstream - talk to a streaming avatar from your terminal

Creates an avatar session against the avatard proxy, joins the session's
LiveKit room and forwards every line you type to the avatar for speech.

Environment Variables:
  AVATAR_BASE_URL  Base URL of the avatard proxy (required)
  AVATAR_ID        Avatar override (optional)
  VOICE_ID         Voice override (optional)

Commands inside the prompt:
  /status      show session and room state
  /disconnect  leave the media room (session stays alive)
  /stop        stop the avatar session (room stays up until exit)
  /quit        stop, leave and exit
  anything else is sent to the avatar verbatim

Options:
  -h, --help  Show this help message
`

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Print(helpText)
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Step 1: create the session through the proxy.
	coord := coordinator.New(api.NewClient(cfg.BaseURL), log.Logger)
	opts := domain.CreateOptions{AvatarID: cfg.AvatarID, VoiceID: cfg.VoiceID}
	if err := coord.HandleCreateSession(ctx, opts); err != nil {
		log.Fatal().Err(err).Msg("create session")
	}
	desc := coord.Session()
	log.Info().Str("session", desc.SessionID).Msg("session ready")

	// Step 2: join the media room. The deferred Close guarantees the room
	// never outlives this process, whatever happens below.
	controller := room.NewController(livekit.NewTransport(log.Logger), log.Logger)
	defer controller.Close()

	if err := controller.Connect(ctx, desc.MediaURL, desc.AccessToken); err != nil {
		log.Error().Err(err).Msg("media room connect")
	}

	// Step 3: prompt loop.
	runPrompt(ctx, coord, controller)

	// Step 4: stop the session if it is still alive.
	if coord.Session().Active() {
		if err := coord.HandleStop(context.Background()); err != nil {
			log.Error().Err(err).Msg("stop session")
		}
	}

	log.Info().Msg("done")
}

func runPrompt(ctx context.Context, coord *coordinator.Coordinator, controller *room.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stderr, `type text to make the avatar speak, "/quit" to exit`)

	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/status":
			st := coord.Snapshot()
			session := "none"
			if st.Session != nil {
				session = st.Session.SessionID
			}
			fmt.Fprintf(os.Stderr, "session: %s | room: %s (%s) | tracks: %d\n",
				session, controller.State(), controller.Status(), len(controller.Tracks()))
			if st.Err != "" {
				fmt.Fprintf(os.Stderr, "last error: %s\n", st.Err)
			}
		case "/disconnect":
			if err := controller.Disconnect(); err != nil {
				log.Error().Err(err).Msg("disconnect")
			}
			fmt.Fprintln(os.Stderr, controller.Status())
		case "/stop":
			if err := coord.HandleStop(ctx); err != nil {
				log.Error().Err(err).Msg("stop")
			} else {
				fmt.Fprintln(os.Stderr, "session stopped; room stays up until /disconnect or exit")
			}
		default:
			if err := coord.HandleSendText(ctx, line); err != nil {
				log.Error().Err(err).Msg("send text")
			}
		}
	}
}
