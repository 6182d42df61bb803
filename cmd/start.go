package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/op/go-logging"
	"github.com/openlar/openlar/api"
	"github.com/openlar/openlar/events"
	"github.com/openlar/openlar/notifications"
	"github.com/openlar/openlar/repo"
	"github.com/openlar/openlar/version"
)

var log = logging.MustGetLogger("CMD")

// Start is the main entry point for the openlar server. The options to
// this command are the same as the server config options.
type Start struct {
	repo.Config
}

// Execute starts the openlar server.
func (x *Start) Execute(args []string) error {
	cfg, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	store := notifications.NewStore(r.DB())
	cache := notifications.NewWorkingSet()
	state := notifications.NewStateMachine(store, r.DB(), bus, cache)
	queries := notifications.NewQueries(store)

	if err := cache.Hydrate(store); err != nil {
		return err
	}

	ingestor := notifications.NewIngestor(store, cache, bus)
	go ingestor.Start()

	sweeper := notifications.NewSweeper(store, state, cache)
	if err := sweeper.Start(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.GatewayAddr)
	if err != nil {
		return err
	}

	allowedIPs := make(map[string]bool)
	for _, ip := range cfg.AllowedIPs {
		allowedIPs[ip] = true
	}

	gateway := api.NewGateway(r.DB(), state, cache, queries, &api.GatewayConfig{
		Listener:   listener,
		NoCors:     cfg.NoCors,
		AllowedIPs: allowedIPs,
		UseSSL:     cfg.UseSSL,
		SSLCert:    cfg.SSLCert,
		SSLKey:     cfg.SSLKey,
	})

	printSplashScreen()

	go func() {
		if err := gateway.Serve(); err != nil {
			log.Errorf("Gateway error: %s", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c

	log.Info("openlar shutting down...")
	sweeper.Stop()
	ingestor.Stop()
	if err := gateway.Close(); err != nil {
		log.Errorf("Error closing gateway: %s", err)
	}
	r.Close()
	return nil
}

func printSplashScreen() {
	blue := color.New(color.FgBlue)
	white := color.New(color.FgWhite)

	for i, l := range []string{
		`                            .__`,
		`  ____ ______   ____   ____ |  | _____ _______`,
		` /  _ \\____ \_/ __ \ /    \|  | \__  \\_  __ \`,
		`(  <_> )  |_> >  ___/|   |  \  |__/ __ \|  | \/`,
		` \____/|   __/ \___  >___|  /____(____  /__|`,
		`       |__|        \/     \/          \/`,
	} {
		if i%2 == 0 {
			white.Println(l)
		} else {
			blue.Println(l)
		}
	}
	blue.DisableColor()
	white.DisableColor()
	fmt.Printf("\nopenlar server v%s\n\n", version.String())
}
