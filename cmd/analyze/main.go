// Package main provides a one-shot analysis report for an entity: bucket
// statistics, proposed multipliers, and the diff against the active set,
// rendered as Markdown with an optional CSV export. Nothing is persisted.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/reporting"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
	chstore "github.com/mbicorp/amazonbid-engine-sub000/internal/storage/clickhouse"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage/memory"
	pgstore "github.com/mbicorp/amazonbid-engine-sub000/internal/storage/postgres"
)

func main() {
	// Parse flags
	entityID := flag.String("entity", "", "Entity ID to analyze")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	demo := flag.Bool("demo", false, "Use in-memory demo data instead of databases")
	byWeekday := flag.Bool("by-weekday", false, "Additionally analyze (hour, weekday) buckets")
	outputPath := flag.String("output", "", "Write the Markdown report to a file instead of stdout")
	csvPath := flag.String("csv", "", "Also write the bucket table as CSV to this path")
	flag.Parse()

	ctx := context.Background()

	// Validate flags
	if *entityID == "" {
		fmt.Fprintln(os.Stderr, "Error: --entity is required")
		os.Exit(1)
	}
	if !*demo && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required when not using --demo")
		os.Exit(1)
	}

	// Create stores based on mode
	var (
		configStore     storage.ConfigStore
		multiplierStore storage.MultiplierStore
		feedbackStore   storage.FeedbackStore
		rollbackStore   storage.RollbackStore
		sampleStore     storage.SampleStore
		cleanup         func()
		err             error
	)

	if *demo {
		configStore, multiplierStore, feedbackStore, rollbackStore, sampleStore = createDemoStores(ctx, *entityID)
		cleanup = func() {}
	} else {
		configStore, multiplierStore, feedbackStore, rollbackStore, sampleStore, cleanup, err = createDatabaseStores(ctx, *postgresDSN, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
			os.Exit(1)
		}
	}
	defer cleanup()

	generator := reporting.NewGenerator(configStore, multiplierStore, feedbackStore, rollbackStore, sampleStore).
		WithWeekday(*byWeekday)

	report, err := generator.Generate(ctx, *entityID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	md := reporting.RenderMarkdown(report)
	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, []byte(md), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *outputPath)
	} else {
		fmt.Print(md)
	}

	if *csvPath != "" {
		if err := os.WriteFile(*csvPath, []byte(reporting.RenderCSV(report.Buckets)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bucket table written to %s\n", *csvPath)
	}
}

// createDemoStores creates in-memory stores seeded with a synthetic diurnal
// curve: strong evening hours, weak early-morning hours.
func createDemoStores(ctx context.Context, entityID string) (
	storage.ConfigStore,
	storage.MultiplierStore,
	storage.FeedbackStore,
	storage.RollbackStore,
	storage.SampleStore,
) {
	configStore := memory.NewConfigStore()
	multiplierStore := memory.NewMultiplierStore()
	feedbackStore := memory.NewFeedbackStore()
	rollbackStore := memory.NewRollbackStore()
	sampleStore := memory.NewSampleStore()

	if err := configStore.Upsert(ctx, domain.DefaultConfig(entityID)); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding demo config: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(42))
	start := time.Now().UTC().AddDate(0, 0, -28).Truncate(24 * time.Hour)

	for day := 0; day < 28; day++ {
		date := start.AddDate(0, 0, day)
		weekday := int(date.Weekday())

		for hour := 0; hour < 24; hour++ {
			// Conversion lift peaks around 20:00 and bottoms out around 04:00.
			lift := 1.0
			switch {
			case hour >= 18 && hour <= 22:
				lift = 1.6
			case hour >= 2 && hour <= 5:
				lift = 0.5
			}

			clicks := int64(80 + rng.Intn(40))
			conversions := int64(float64(clicks) * 0.04 * lift * (0.8 + 0.4*rng.Float64()))
			spend := float64(clicks) * 1.1
			revenue := spend * 2.0 * lift * (0.8 + 0.4*rng.Float64())

			sample := domain.NewPerformanceSample(entityID, date, hour, weekday,
				clicks*90, clicks, conversions, spend, revenue)
			if err := sampleStore.Add(sample); err != nil {
				fmt.Fprintf(os.Stderr, "Error seeding demo samples: %v\n", err)
				os.Exit(1)
			}
		}
	}

	return configStore, multiplierStore, feedbackStore, rollbackStore, sampleStore
}

// createDatabaseStores connects to PostgreSQL and ClickHouse and creates stores.
func createDatabaseStores(ctx context.Context, postgresDSN, clickhouseDSN string) (
	storage.ConfigStore,
	storage.MultiplierStore,
	storage.FeedbackStore,
	storage.RollbackStore,
	storage.SampleStore,
	func(),
	error,
) {
	// Connect to PostgreSQL
	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Connect to ClickHouse
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, nil, nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pgPool.Close()
	}

	return pgstore.NewConfigStore(pgPool),
		pgstore.NewMultiplierStore(pgPool),
		pgstore.NewFeedbackStore(pgPool),
		pgstore.NewRollbackStore(pgPool),
		chstore.NewSampleStore(chConn),
		cleanup,
		nil
}
