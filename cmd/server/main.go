package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/intercity-reservation/internal/config"
	"github.com/iliyamo/intercity-reservation/internal/database"
	"github.com/iliyamo/intercity-reservation/internal/gateway"
	"github.com/iliyamo/intercity-reservation/internal/handler"
	"github.com/iliyamo/intercity-reservation/internal/middleware"
	"github.com/iliyamo/intercity-reservation/internal/persistence"
	"github.com/iliyamo/intercity-reservation/internal/pricing"
	"github.com/iliyamo/intercity-reservation/internal/queue"
	"github.com/iliyamo/intercity-reservation/internal/repository"
	"github.com/iliyamo/intercity-reservation/internal/reservation"
	"github.com/iliyamo/intercity-reservation/internal/router"
)

const draftKeyPrefix = "ixr:"

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil when redis is unreachable; cache, limiter and redis drafts degrade
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	catalog := repository.NewCatalogRepo(db)
	reservations := repository.NewReservationRepo(db)

	var publisher queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewAMQPPublisher(cfg.AMQPURL)
	}
	gw := gateway.New(db, reservations, publisher, reservation.NewConfirmationID(cfg.Booking.ConfirmationPrefix))

	machines := reservation.NewRegistry(machineFactory(cfg.Booking, draftBackend(cfg.Booking, db, rdb), gw))
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.RegisterRoutes(e)
	router.RegisterPublic(e, &handler.CatalogHandler{Catalog: catalog}, cache)
	router.RegisterBooking(e,
		&handler.BookingHandler{Catalog: catalog, Machines: machines, Cache: cache},
		&handler.ReservationHandler{Reservations: reservations},
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := &reservation.Sweeper{
		Registry: machines,
		Interval: cfg.Booking.SweepInterval,
		IdleTTL:  cfg.Booking.SessionIdleTTL,
	}
	go sweeper.Run(ctx)
	if cfg.AMQPURL != "" {
		consumer := &queue.Consumer{URL: cfg.AMQPURL, LogDir: cfg.Booking.LogDir}
		go consumer.Run(ctx)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// draftBackend picks where in-progress drafts live.  Redis falls back to
// memory when no client is available.
func draftBackend(bc config.BookingConfig, db *sql.DB, rdb *redis.Client) persistence.Backend {
	switch bc.DraftBackend {
	case "redis":
		if rdb != nil {
			return persistence.NewRedis(rdb, draftKeyPrefix, bc.DraftTTL)
		}
		log.Printf("draft-store: redis unavailable, keeping drafts in memory")
	case "mysql":
		return persistence.NewMySQL(repository.NewDraftRepo(db))
	}
	return persistence.NewMemory()
}

// machineFactory builds the reservation session of one customer.  The
// registry keys sessions by the decimal user id from the access token.
func machineFactory(bc config.BookingConfig, backend persistence.Backend, gw *gateway.SQLGateway) reservation.Factory {
	drafts := persistence.ForOwner(backend, persistence.NewSealer(bc.DraftSecret))
	engine := pricing.Engine{Policy: pricing.ParsePolicy(bc.FeePolicy)}
	newID := reservation.NewConfirmationID(bc.ConfirmationPrefix)
	return func(owner string) *reservation.Machine {
		uid, _ := strconv.ParseUint(owner, 10, 64)
		return reservation.New(reservation.Options{
			Persister: drafts(owner),
			Gateway:   gw.ForUser(uid),
			Pricing:   engine,
			HoldTTL:   bc.HoldTTL,
			NewID:     newID,
		})
	}
}
