// README: Entry point; loads config, wires services and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"vetrimart/internal/config"
	httptransport "vetrimart/internal/http"
	"vetrimart/internal/infra"
	"vetrimart/internal/maps"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/notify"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/modules/pricing"
	"vetrimart/internal/modules/tracking"
	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("VETRI_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	var (
		locker    order.Locker   = order.NewKeyedMutex()
		selection zone.Selection = zone.NewMemorySelection()
	)
	if cfg.Lock.Backend == "redis" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal(err)
		}
		defer redisClient.Close()
		locker = order.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.Wait)
		selection = zone.NewRedisSelection(redisClient, cfg.Session.TTL)
	}

	taxRate, err := decimal.NewFromString(cfg.Tax.Rate)
	if err != nil {
		log.Fatalf("tax.rate: %v", err)
	}

	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.Email.PostmarkToken != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.Email.PostmarkToken, cfg.Email.From))
	}
	if cfg.Firebase.Push {
		msgClient, err := infra.NewMessagingClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("fcm init: %v", err)
		}
		notifiers = append(notifiers, notify.NewPushNotifier(msgClient))
	}

	var gateway payment.Gateway
	if cfg.Payment.KeyID != "" {
		gateway, err = payment.NewRazorpayGateway(cfg.Payment.KeyID, cfg.Payment.KeySecret)
		if err != nil {
			log.Fatalf("payment gateway: %v", err)
		}
	} else {
		log.Printf("payment.key_id not set; checkout is disabled")
	}

	var geocoder *maps.GeocodeService
	if cfg.Maps.APIKey != "" {
		geocoder, err = maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
	}

	warehouse := types.GeoPoint{Lat: cfg.Warehouse.Lat, Lng: cfg.Warehouse.Lng}
	loc := cfg.Delivery.Location()

	zoneSvc := zone.NewResolver(zone.NewStore(dbPool))
	evaluator := delivery.NewEvaluator(warehouse, cfg.Delivery.SpeedKmph, loc)
	deliverySvc := delivery.NewService(evaluator, zoneSvc)

	orderSvc := order.NewService(order.NewStore(dbPool), order.Deps{
		Pricing:   pricing.NewService(taxRate),
		Gateway:   gateway,
		Verifier:  payment.NewSignatureVerifier(cfg.Payment.KeySecret),
		Notifier:  notifiers,
		Locker:    locker,
		Simulator: tracking.NewSimulator(cfg.Delivery.StepFraction),
		Warehouse: warehouse,
	})

	handler := httptransport.NewRouter(httptransport.ServerDeps{
		Order:     orderSvc,
		Delivery:  deliverySvc,
		Zones:     zoneSvc,
		Selection: selection,
		Geocode:   geocoder,
		Verifier:  verifier,
		Clock:     func() time.Time { return time.Now().In(loc) },
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
