// README: vetrictl entry point; builds the store-backed environment for the ops commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"vetrimart/internal/cli"
	"vetrimart/internal/config"
	"vetrimart/internal/infra"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/notify"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/modules/pricing"
	"vetrimart/internal/modules/tracking"
	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

func open(ctx context.Context, configPath string) (*cli.Env, func(), error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, nil, err
	}
	taxRate, err := decimal.NewFromString(cfg.Tax.Rate)
	if err != nil {
		return nil, nil, fmt.Errorf("tax.rate: %w", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){dbPool.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var locker order.Locker = order.NewKeyedMutex()
	if cfg.Lock.Backend == "redis" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		locker = order.NewRedisLocker(redisClient, cfg.Lock.TTL, cfg.Lock.Wait)
	}

	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.Email.PostmarkToken != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(cfg.Email.PostmarkToken, cfg.Email.From))
	}

	warehouse := types.GeoPoint{Lat: cfg.Warehouse.Lat, Lng: cfg.Warehouse.Lng}
	loc := cfg.Delivery.Location()
	zones := zone.NewResolver(zone.NewStore(dbPool))

	return &cli.Env{
		Delivery: delivery.NewService(delivery.NewEvaluator(warehouse, cfg.Delivery.SpeedKmph, loc), zones),
		Zones:    zones,
		Orders: order.NewService(order.NewStore(dbPool), order.Deps{
			Pricing:   pricing.NewService(taxRate),
			Verifier:  payment.NewSignatureVerifier(cfg.Payment.KeySecret),
			Notifier:  notifiers,
			Locker:    locker,
			Simulator: tracking.NewSimulator(cfg.Delivery.StepFraction),
			Warehouse: warehouse,
		}),
		Now: func() time.Time { return time.Now().In(loc) },
	}, closeAll, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env file: %v", err)
	}
	if err := cli.NewRootCmd(open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
