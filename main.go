package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fillflow/cache"
	appconfig "fillflow/config"
	"fillflow/logger"
	"fillflow/processor"
	"fillflow/reader"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Fillflow.Name,
		"version": cfg.Fillflow.Version,
		"source":  cfg.Source.Connection,
	}).Info("starting fillflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	if cfg.Logging.Level == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	source, err := reader.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to create fill source")
		os.Exit(1)
	}

	proc := processor.New(cache.New(cfg.Cache.CapacityHours), source)

	log.Info("starting query processing")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		result, err := proc.ProcessQuery(ctx, line)
		if err != nil {
			log.WithComponent("main").WithError(err).Error("query failed")
			continue
		}
		fmt.Println(result.String())
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("failed to read queries")
		os.Exit(1)
	}

	stats := proc.CacheStats()
	log.WithComponent("main").WithFields(logger.Fields{
		"hours_cached":   stats.Buckets,
		"fills_stored":   stats.Fills,
		"max_fills_hour": stats.MaxBucketFills,
		"approx_bytes":   stats.ApproxBytes,
		"approx_mb":      float64(stats.ApproxBytes) / 1_000_000.0,
		"cache_hits":     proc.CacheHits(),
		"fetch_calls":    proc.FetchCalls(),
		"cache_hit_rate": fmt.Sprintf("%.2f%%", proc.HitRate()*100),
		"queries":        proc.Queries(),
		"query_errors":   proc.QueryErrors(),
	}).Info("session finished")
}
