package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/astromechza/ticktrack/pkg/backup"
	"github.com/astromechza/ticktrack/pkg/config"
	"github.com/astromechza/ticktrack/pkg/httpapi"
	"github.com/astromechza/ticktrack/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configVar := flag.String("config", "ticktrack.yaml", "the path to the settings file")
	addrVar := flag.String("addr", "", "override the address to listen on")
	flag.Parse()

	settings, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	if *addrVar != "" {
		settings.Addr = *addrVar
	}

	slog.Info("Opening data directory", "dir", settings.DataDir)
	st, err := store.New(settings.DataDir, settings.MaxPayloadBytes)
	if err != nil {
		return err
	}

	slog.Info("Opening backup database", "path", settings.BackupPath)
	db, err := backup.Open(settings.BackupPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := backup.New(db, st, settings.BackupInterval)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	api := httpapi.New(st)
	httpServer := &http.Server{Addr: settings.Addr, Handler: api.Router()}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Listening", "addr", settings.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	cancel()
	_ = httpServer.Close()

	wg.Wait()

	// One last snapshot so the backup tier is no older than shutdown.
	runner.Snapshot(context.Background())
	return nil
}
