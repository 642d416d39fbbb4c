package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equipment_lending/app"
	"equipment_lending/config"
	"equipment_lending/routes"
)

func main() {
	config.LoadEnv()
	application := app.MustNew()
	defer application.Close()

	routes.RegisterRoutes(application.Router, application)

	if err := application.Refresher.Start(application.Config.RefreshCron); err != nil {
		application.Logger.Error("availability refresher not started", "error", err.Error())
	}

	srv := &http.Server{
		Addr:              ":" + application.Config.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		application.Logger.Info("listening", "port", application.Config.Port,
			"store", application.Config.StoreBackend, "lock", application.Config.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			application.Logger.Error("server stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		application.Logger.Error("shutdown", "error", err.Error())
	}
}
