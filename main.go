package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "ridepool/internal/config"
	"ridepool/internal/gateway"
	router "ridepool/internal/http"
	"ridepool/internal/ledger"
	"ridepool/internal/repositories"
	"ridepool/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	var gw gateway.Gateway
	if env.GatewayBaseURL != "" {
		gw = gateway.NewMpesaGateway(env.GatewayBaseURL, env.GatewayAPIKey, env.GatewayTimeout)
	} else {
		log.Println("GATEWAY_BASE_URL not set, charges will be declined")
		gw = gateway.Noop{}
	}

	coord := services.Coordinator{
		RideRepo:       repositories.RideRepo{},
		UserRepo:       repositories.UserRepo{},
		BookingRepo:    repositories.BookingRepo{},
		PaymentRepo:    repositories.PaymentRepo{},
		PayoutRepo:     repositories.PayoutRepo{},
		Ledger:         ledger.Ledger{},
		Gateway:        gw,
		PayoutFraction: env.PayoutFraction,
	}

	recon := services.Reconciler{
		Coordinator: coord,
		Interval:    env.ReconcileInterval,
		PendingAge:  env.PendingTimeout,
	}
	reconCtx, stopRecon := context.WithCancel(context.Background())
	defer stopRecon()
	go recon.Run(reconCtx)

	r := router.NewRouter(env, coord)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("ridepool listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopRecon()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly")
}
