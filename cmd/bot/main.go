// Command bot wires the cache-coalescing core to a running process: load
// configuration, open the database pool, build one adapter per platform,
// and hand a live cacheservice.Client to the (out-of-scope, per spec.md §1)
// chat-bot command surface. It deliberately does nothing with the messaging
// platform's own SDK or captcha flow, and its signal handling is limited to
// shutting down on SIGINT/SIGTERM — those are the seams spec.md names as
// explicitly out of scope.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/adapter/booru"
	"github.com/snowpity/tg/internal/adapter/deviantart"
	"github.com/snowpity/tg/internal/adapter/twitter"
	"github.com/snowpity/tg/internal/blobcache"
	"github.com/snowpity/tg/internal/cacheservice"
	"github.com/snowpity/tg/internal/config"
	"github.com/snowpity/tg/internal/convert"
	"github.com/snowpity/tg/internal/dispatch"
	"github.com/snowpity/tg/internal/platform"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	log := config.NewLogger(version)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("bot: failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("bot: failed to open database pool")
	}
	defer pool.Close()

	disp, err := buildDispatch(ctx, pool, log)
	if err != nil {
		log.WithError(err).Fatal("bot: failed to build platform adapters")
	}

	conv := convert.New(cfg.CodecBinary, cfg.TempDir, cfg.ConverterScaleFilter, log)
	downloader := cacheservice.NewHTTPDownloader(nil, cfg.TempDir)
	uploader := notImplementedUploader{}

	client := cacheservice.NewClient(disp, downloader, uploader, conv, log,
		cacheservice.WithMaxInFlight(cfg.MaxInFlight),
		cacheservice.WithBlobFanout(cfg.BlobFanout),
	)
	defer client.Close()

	log.Info("bot: cache service ready")
	<-ctx.Done()
	log.Info("bot: shutting down")
}

// buildDispatch constructs one Repo and adapter instance per platform and
// wires them into a dispatch.Dispatch, ensuring every platform's table
// exists before the service accepts its first request.
func buildDispatch(ctx context.Context, pool *pgxpool.Pool, log *logrus.Entry) (*dispatch.Dispatch, error) {
	booruAdapters := make([]*booru.Adapter, 0, len(booru.Configs))
	for _, cfg := range booru.Configs {
		repo := blobcache.New(pool, cfg.Platform, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensuring schema for %s: %w", cfg.Name, err)
		}
		booruAdapters = append(booruAdapters, booru.New(cfg, nil, repo, log))
	}

	twitterRepo := blobcache.New(pool, platform.Twitter, log)
	if err := twitterRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring schema for Twitter: %w", err)
	}
	tw := twitter.New(nil, twitterRepo, log)

	deviantArtRepo := blobcache.New(pool, platform.DeviantArt, log)
	if err := deviantArtRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring schema for DeviantArt: %w", err)
	}
	da := deviantart.New(nil, deviantArtRepo, log)

	return dispatch.New(booruAdapters, tw, da, log), nil
}

// notImplementedUploader is the seam for the messaging-platform SDK
// (spec.md §1 Non-goals): wiring it up is the surrounding bot's job, not
// this module's.
type notImplementedUploader struct{}

func (notImplementedUploader) Upload(ctx context.Context, kind platform.CdnFileKind, path string) (string, error) {
	return "", fmt.Errorf("upload: messaging-platform CDN client is not wired up in this build")
}
