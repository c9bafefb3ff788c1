package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quillscore/quillscore-api/config"
	"github.com/quillscore/quillscore-api/internal/bootstrap"
	"github.com/redis/go-redis/v9"
)

var errRedisNotConfigured = errors.New("redis not configured")

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

type cacheClearOptions struct {
	Timeout time.Duration
	Dedup   bool
	DryRun  bool
}

// cachePatterns returns the key patterns the cache-clear command scans.
// The task catalog cache is always included; submit dedup guards are opt-in
// because clearing them re-opens the duplicate submission window.
func cachePatterns(opts cacheClearOptions) []string {
	patterns := []string{"tasks:catalog:*"}
	if opts.Dedup {
		patterns = append(patterns, "submissions:dedup:*")
	}
	return patterns
}

func runCacheClear(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheClearFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	client, err := maybeConnectRedis(cmdCtx.Logger, &cmdCtx.Config.Redis)
	if err != nil {
		if errors.Is(err, errRedisNotConfigured) {
			return errors.New("no redis configuration detected; nothing to clear")
		}
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	deleted := 0
	for _, pattern := range cachePatterns(opts) {
		n, scanErr := clearKeysByPattern(ctx, client, pattern, opts.DryRun)
		if scanErr != nil {
			return fmt.Errorf("clear keys for pattern %q: %w", pattern, scanErr)
		}
		deleted += n
	}

	verb := "deleted"
	if opts.DryRun {
		verb = "would delete"
	}
	return writef(os.Stdout, "%s %d cache keys\n", verb, deleted)
}

func clearKeysByPattern(ctx context.Context, client redis.UniversalClient, pattern string, dryRun bool) (int, error) {
	deleted := 0
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if dryRun {
			if err := writeln(os.Stdout, key); err != nil {
				return deleted, err
			}
			deleted++
			continue
		}
		if err := client.Del(ctx, key).Err(); err != nil {
			return deleted, fmt.Errorf("delete key %q: %w", key, err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan pattern %q: %w", pattern, err)
	}
	return deleted, nil
}

func parseCacheClearFlags(args []string) (cacheClearOptions, error) {
	fs := flag.NewFlagSet("cache-clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := cacheClearOptions{
		Timeout: 2 * time.Minute,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		2*time.Minute,
		"Maximum duration to wait for the clear to complete",
	)
	fs.BoolVar(
		&opts.Dedup,
		"dedup",
		false,
		"Also clear submission dedup guard keys",
	)
	fs.BoolVar(
		&opts.DryRun,
		"dry-run",
		false,
		"Print matching keys without deleting them",
	)

	if err := fs.Parse(args); err != nil {
		return cacheClearOptions{}, err
	}

	if opts.Timeout <= 0 {
		return cacheClearOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}
