package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinkeractive/wolo"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFilePath := flag.String("config", "", "config file path (.json or .toml)")
	flag.Parse()
	cfg := wolo.Config{}
	var err error
	if *configFilePath == "" {
		err = cfg.Parse(nil)
	} else {
		cfg, err = wolo.LoadConfig(*configFilePath)
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Println("config:", cfg.String())
	app, err := wolo.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("backend service at", cfg.ServiceURL)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// management server listening for admin requests on management port
	mgmtServer := &http.Server{
		Handler: app.ManagementRouter(),
		Addr:    ":" + cfg.ManagementPort,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("listening on management port", cfg.ManagementPort)
		return ignoreClosed(mgmtServer.ListenAndServe())
	})
	g.Go(func() error {
		log.Println("listening on port", cfg.ListenPort)
		return ignoreClosed(app.ListenAndServe())
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgmtServer.Shutdown(shutdownCtx)
		return app.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
