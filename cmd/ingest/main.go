package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/azure/brand-mentions-api/internal/config"
	"github.com/azure/brand-mentions-api/internal/ingestion"
	"github.com/azure/brand-mentions-api/internal/matching"
	"github.com/azure/brand-mentions-api/internal/monitoring"
	"github.com/azure/brand-mentions-api/internal/notifications"
	"github.com/azure/brand-mentions-api/internal/sources"
	"github.com/azure/brand-mentions-api/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	check := flag.String("check", "", "comma separated keywords: only test source connectivity, store nothing")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the run")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	srcs := sources.Default(cfg.RedditClientID, cfg.RedditClientSecret)

	if *check != "" {
		checkSources(ctx, cfg, srcs, strings.Split(*check, ","))
		return
	}

	db, err := store.Open(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	s := store.New(db)

	recorder := monitoring.NewRecorder()
	engine := matching.NewEngine(s, notifications.NewService(cfg), recorder)
	svc := ingestion.NewService(cfg, s, engine, recorder, srcs)

	result, err := svc.PollSources(ctx)
	engine.Wait()
	if err != nil {
		logrus.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Fetched %d posts: %d stored, %d duplicates, %d source errors in %s\n",
		result.Fetched, result.Stored, result.Duplicates, result.Errors, result.Duration.Round(time.Millisecond))
	fmt.Println(recorder.GetMetrics())
}

// checkSources fetches from every source without touching the database.
func checkSources(ctx context.Context, cfg *config.Config, srcs []sources.Source, keywords []string) {
	fmt.Println("Source connectivity check")
	fmt.Println(strings.Repeat("-", 40))

	since := time.Now().Add(-cfg.IngestWindow)
	for _, source := range srcs {
		fmt.Printf("%-16s ", source.GetName())

		if !source.IsEnabled() || cfg.SourceDisabled(source.GetName()) {
			fmt.Println("DISABLED")
			continue
		}

		posts, err := source.FetchPosts(ctx, keywords, since)
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			continue
		}

		fmt.Printf("OK (%d posts)\n", len(posts))
		if len(posts) > 0 {
			fmt.Printf("%-16s sample: %q\n", "", posts[0].Title)
		}
	}
}
