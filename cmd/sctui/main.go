package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Illogicalll/sctui-sub000/internal/api"
	"github.com/Illogicalll/sctui-sub000/internal/auth"
	"github.com/Illogicalll/sctui-sub000/internal/config"
	"github.com/Illogicalll/sctui-sub000/internal/httpclient"
	"github.com/Illogicalll/sctui-sub000/internal/player"
	"github.com/Illogicalll/sctui-sub000/internal/tui"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	forceLogin := flag.Bool("login", false, "run the login flow even if a token exists")
	logPath := flag.String("log", "", "write debug logs to this file")
	maxBandwidth := flag.Int64("max-bandwidth", 0, "download cap in bytes per second (0 = unlimited)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sctui %s (%s)\n", version, commit)
		os.Exit(0)
	}

	cfg := config.New()
	if *logPath != "" {
		cfg.LogPath = *logPath
	}
	cfg.MaxBandwidth = *maxBandwidth

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Set SOUNDCLOUD_CLIENT_ID and SOUNDCLOUD_CLIENT_SECRET.")
		os.Exit(1)
	}

	setupLogging(cfg.LogPath)

	client := httpclient.NewWithRateLimit(httpclient.DefaultConfig(), cfg.MaxBandwidth)
	creds := auth.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}

	tok, err := auth.Load(cfg.TokenPath)
	if err != nil || tok.Expired() || *forceLogin {
		fmt.Println("Logging in to SoundCloud…")
		tok, err = auth.Login(client, creds, cfg.TokenPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: login failed: %v\n", err)
			os.Exit(1)
		}
	}

	store := auth.NewStore(tok, cfg.TokenPath)
	reauth := auth.StartAutoRefresh(client, creds, store)

	out, err := player.OpenOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: audio output: %v\n", err)
		os.Exit(1)
	}

	pl := player.New(out, client, store, creds, cfg)
	catalog := api.New(client, store, creds)

	prog := tea.NewProgram(tui.NewModel(pl, catalog, reauth), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends logs to a file, or nowhere: the TUI owns the
// terminal.
func setupLogging(path string) {
	if path == "" {
		log.Logger = zerolog.Nop()
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = zerolog.Nop()
		return
	}
	log.Logger = zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
