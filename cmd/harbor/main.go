package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harbor-chat/harbor/internal/config"
	"github.com/harbor-chat/harbor/internal/hub"
	"github.com/harbor-chat/harbor/internal/navigation"
	"github.com/harbor-chat/harbor/internal/secrets"
	"github.com/harbor-chat/harbor/internal/servers"
	"github.com/harbor-chat/harbor/internal/store"
	"github.com/harbor-chat/harbor/internal/ui"
	"github.com/harbor-chat/harbor/internal/views"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg := config.DefaultConfig()

	if *configPath == "" {
		defaultPaths := []string{
			"./harbor.toml",
			config.DefaultPath(),
		}
		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				*configPath = path
				break
			}
		}
	}

	if *configPath != "" {
		if err := config.Load(*configPath, cfg); err != nil {
			log.Printf("Warning: Failed to load config: %v", err)
		}
	}

	printBanner()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Open the server database
	db, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	stored, currentIndex, err := db.LoadServers()
	if err != nil {
		log.Fatalf("Failed to load servers: %v", err)
	}

	predefined, err := cfg.PredefinedServers()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Wire the registry, views, validation and modal flows together
	registry := servers.NewManager(db)
	registry.Init(predefined, stored, currentIndex)

	viewManager := views.NewManager()
	viewManager.BindRegistry(registry)
	for _, srv := range registry.GetAllServers() {
		if _, err := viewManager.CreateView(srv.ID, views.ViewTypeTab); err != nil {
			log.Printf("Warning: Failed to create view for %s: %v", srv.Name, err)
		}
	}

	theme, err := ui.GetTheme(cfg.Theme)
	if err != nil {
		log.Printf("Warning: Failed to load theme %q: %v, using default", cfg.Theme, err)
		theme = ui.DefaultTheme()
	}

	prober := servers.NewHTTPProber()
	validator := servers.NewValidator(registry, prober)
	secretStore := secrets.NewKeyringStore()
	modals := ui.NewTerminalModals(validator, theme)
	serverHub := hub.New(registry, secretStore, modals)
	nav := navigation.NewManager(registry, viewManager, serverHub)

	// Deep links arrive as command line arguments on first launch
	for _, arg := range flag.Args() {
		if strings.HasPrefix(strings.ToLower(arg), navigation.DeepLinkScheme+"://") {
			nav.OpenDeepLink(arg)
		}
	}

	if cfg.EnableServerManagement {
		serverHub.ShowWelcomeScreenIfNeeded()
	}

	nav.SetReady()

	loadCurrentServer(registry, viewManager)

	// Keep surfaces and their event connections alive until interrupted
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down")
	for _, srv := range registry.GetAllServers() {
		for _, view := range viewManager.OrderedViewsForServer(srv.ID) {
			viewManager.CloseView(view.ID)
		}
	}
}

// loadCurrentServer starts loading the current server's primary view.
func loadCurrentServer(registry *servers.Manager, viewManager *views.Manager) {
	currentID := registry.CurrentServerID()
	srv := registry.GetServer(currentID)
	if srv == nil {
		return
	}
	view, ok := viewManager.PrimaryView(srv.ID)
	if !ok {
		return
	}
	surface, ok := viewManager.GetSurface(view.ID)
	if !ok {
		return
	}

	target := srv.URL.String()
	if srv.InitialLoadURL != nil {
		target = srv.InitialLoadURL.String()
	}

	go func() {
		res := <-surface.Load(target)
		if res.Err != nil {
			log.Printf("Failed to load %s: %v", res.URL, res.Err)
			return
		}
		log.Printf("Loaded %s", res.URL)
	}()
}

func printBanner() {
	banner := `
  _   _            _
 | | | | __ _ _ __| |__   ___  _ __
 | |_| |/ _' | '__| '_ \ / _ \| '__|
 |  _  | (_| | |  | |_) | (_) | |
 |_| |_|\__,_|_|  |_.__/ \___/|_|

  Multi-Server Chat Client v0.1.0
`
	fmt.Println(banner)
}
