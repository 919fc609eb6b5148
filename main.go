// cheshire-chat - a terminal chat widget for the Cheshire Cat AI service.
//
// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheshirecat-tools/chat-tui/internal/config"
	"github.com/cheshirecat-tools/chat-tui/internal/controller"
	"github.com/cheshirecat-tools/chat-tui/internal/format"
	"github.com/cheshirecat-tools/chat-tui/internal/history"
	"github.com/cheshirecat-tools/chat-tui/internal/host"
	"github.com/cheshirecat-tools/chat-tui/internal/transport"
	"github.com/cheshirecat-tools/chat-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a config file (default: ~/.cheshire-chat/config.{toml,json})")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("cheshire-chat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Debug {
		logger = log.New(os.Stderr, "cheshire: ", log.Ltime|log.Lmsgprefix)
	}

	historyDir, err := cfg.HistoryDir()
	if err != nil {
		return err
	}
	store, err := history.NewStore(historyDir)
	if err != nil {
		return err
	}

	userID := cfg.Endpoint.UserID
	if userID == "" {
		if userID, err = store.UserID(); err != nil {
			return err
		}
	}

	client := transport.NewClient(transport.ClientConfig{
		BaseURL:   cfg.Endpoint.URL,
		AuthToken: cfg.Endpoint.AuthToken,
		Timeout:   time.Duration(cfg.Endpoint.TimeoutSecs) * time.Second,
	})

	var socket controller.Streamer
	streaming := cfg.Endpoint.TransportMode == config.TransportWebSocket
	if streaming {
		socketURL := transport.DeriveSocketURL(cfg.Endpoint.URL, cfg.Endpoint.SocketURL, cfg.Endpoint.AuthToken)
		socket = transport.NewSocket(socketURL)
	}

	relay := host.NewRelay(cfg.Relay.URL, cfg.Relay.Nonce)

	display := ui.NewDisplay()
	ctrl := controller.New(controller.Options{
		Streaming:            streaming,
		Configured:           cfg.Endpoint.URL != "",
		UserID:               userID,
		ContextEnabled:       cfg.Context.Enabled,
		ContentID:            cfg.Context.ContentID,
		ContentURL:           cfg.Context.ContentURL,
		ReinforcementEnabled: cfg.Context.ReinforcementEnabled,
		ReinforcementText:    cfg.Context.ReinforcementText,
		Links: format.LinkOptions{
			Enabled:          cfg.Links.Enabled,
			MinScore:         cfg.Links.MinScore,
			Label:            cfg.Links.Label,
			CurrentContentID: cfg.Context.ContentID,
		},
		WelcomeMessage: cfg.Chat.WelcomeMessage,
		Logger:         logger,
	}, client, socket, relay, store, display)

	widget := ui.New(ctrl, store, relay, ui.Options{
		DefaultOpen: cfg.Chat.DefaultState == "open",
		ContentID:   cfg.Context.ContentID,
	})

	program := tea.NewProgram(widget, tea.WithAltScreen())
	display.Attach(program)

	// Feature toggles follow config edits without a restart.
	if tomlPath, pathErr := config.ConfigPathTOML(); pathErr == nil && configPath == "" {
		watcher, watchErr := config.Watch(tomlPath, func(next *config.Config) {
			ctrl.UpdateOptions(func(o *controller.Options) {
				o.ContextEnabled = next.Context.Enabled
				o.ReinforcementEnabled = next.Context.ReinforcementEnabled
				o.ReinforcementText = next.Context.ReinforcementText
				o.Links.Enabled = next.Links.Enabled
				o.Links.MinScore = next.Links.MinScore
				o.Links.Label = next.Links.Label
			})
			logger.Printf("config reloaded from %s", tomlPath)
		})
		if watchErr == nil {
			defer watcher.Close()
		} else {
			logger.Printf("config watch unavailable: %v", watchErr)
		}
	}

	defer ctrl.CloseStream()

	_, err = program.Run()
	return err
}
