package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/dealcurator/dealcurator-backend/internal/config"
	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/intake"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/pricing"
	"github.com/dealcurator/dealcurator-backend/internal/modules/publication"
	"github.com/dealcurator/dealcurator-backend/internal/modules/tracking"
	"github.com/dealcurator/dealcurator-backend/internal/modules/validation"
	"github.com/dealcurator/dealcurator-backend/internal/pipeline"
)

func main() {
	once := flag.Bool("once", false, "run one pipeline pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on the environment")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	runner, err := buildRunner(cfg, db)
	if err != nil {
		log.Fatal(err)
	}

	if *once {
		if err := runner.Run(context.Background()); err != nil {
			log.Fatal(err)
		}
		return
	}

	loc, err := time.LoadLocation(cfg.Pipeline.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Pipeline.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Pipeline.Schedule, func() {
		if err := runner.Run(context.Background()); err != nil {
			log.Printf("pipeline pass: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("schedule %q: %v", cfg.Pipeline.Schedule, err)
	}

	log.Printf("pipeline daemon: schedule %q in %s", cfg.Pipeline.Schedule, loc)
	c.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down, waiting for the running pass")
	<-c.Stop().Done()
}

// buildRunner wires every stage against the shared database.
func buildRunner(cfg *config.Config, db *sql.DB) (*pipeline.Runner, error) {
	productRepo := catalog.NewProductPostgresRepository(db)
	storeRepo := catalog.NewStorePostgresRepository(db)
	tagRepo := catalog.NewTagPostgresRepository(db)
	channelRepo := catalog.NewChannelPostgresRepository(db)

	ledger := pricing.NewLedger(pricing.NewPostgresRepository(db))
	offerRepo := offer.NewPostgresRepository(db)

	feed := intake.NewHTTPFeed(cfg.Intake.FeedURL,
		time.Duration(cfg.Intake.FeedTimeoutSecs)*time.Second, cfg.Intake.FeedRatePerSec)
	intakeSvc := intake.NewService(feed, productRepo, storeRepo, tagRepo, ledger, offerRepo,
		intake.NewPostgresRecorder(db), intake.Options{
		MinDiscountPct:    cfg.Intake.MinDiscountPct,
		RequireTagMatch:   cfg.Intake.RequireTagMatch,
		StorePolicy:       cfg.Intake.StorePolicy,
		AutoTag:           cfg.Intake.AutoTag,
		Workers:           cfg.Intake.Workers,
		AffiliateTemplate: cfg.Intake.AffiliateTemplate,
	})

	validationSvc := validation.NewService(offerRepo, productRepo, ledger, validation.Options{
		Window:    time.Duration(cfg.Validation.WindowDays) * 24 * time.Hour,
		AutoGate:  cfg.Validation.AutoGate,
		Threshold: cfg.Validation.AutoGateThreshold,
	})

	transport, err := publication.NewTelegramTransport(cfg.Publication.TelegramToken)
	if err != nil {
		return nil, err
	}
	var shortener publication.Shortener = publication.NoopShortener{}
	if cfg.Publication.ShortenerAPIURL != "" {
		shortener = publication.NewHTTPShortener(cfg.Publication.ShortenerAPIURL,
			cfg.Publication.ShortenerToken,
			time.Duration(cfg.Publication.ShortenerTimeoutSec)*time.Second)
	}
	metricsRepo := tracking.NewPostgresRepository(db)
	publicationSvc := publication.NewService(offerRepo, productRepo, storeRepo, tagRepo, channelRepo,
		publication.NewPostgresRepository(db), metricsRepo, transport, shortener, publication.Options{
			Workers:        cfg.Publication.Workers,
			ChannelTimeout: time.Duration(cfg.Publication.ChannelTimeoutSecs) * time.Second,
		})

	var clicks tracking.ClickSource
	if cfg.Tracking.ClicksAPIURL != "" {
		clicks = tracking.NewHTTPClickSource(cfg.Tracking.ClicksAPIURL, cfg.Tracking.ClicksToken, 10*time.Second)
	}
	collector := tracking.NewCollector(offerRepo, metricsRepo, clicks, nil)

	return pipeline.NewRunner(intakeSvc, validationSvc, publicationSvc, collector), nil
}
