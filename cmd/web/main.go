package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"reeldrop.app/reeldrop/cmd/web/internal/web"
	"reeldrop.app/reeldrop/internal/config"
	"reeldrop.app/reeldrop/internal/jobs"
	"reeldrop.app/reeldrop/internal/media/ytdlpx"
	"reeldrop.app/reeldrop/internal/resolver"
	"reeldrop.app/reeldrop/pkg/ffmpeg"
	"reeldrop.app/reeldrop/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(conf.DownloadDir, 0o755); err != nil {
		slog.Error("failed to create download directory", "dir", conf.DownloadDir, "error", err)
		os.Exit(1)
	}

	var cookies string
	if conf.CookiesFile != "" {
		raw, err := os.ReadFile(conf.CookiesFile)
		if err != nil {
			slog.Warn("failed to read cookies file; token-based strategies run without cookies", "file", conf.CookiesFile, "error", err)
		} else {
			cookies = string(raw)
		}
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, 10*time.Second)
	if version, err := (&ytdlp.Client{Path: conf.YtdlpPath}).Version(probeCtx); err != nil {
		slog.Warn("yt-dlp not found; downloads will fail until it is installed", "error", err)
	} else {
		slog.Info("yt-dlp detected", "version", version)
	}
	cancelProbe()

	catalog := resolver.DefaultCatalog()
	extractor := ytdlpx.New(conf.YtdlpPath, cookies, catalog)
	sessions := resolver.NewWithCatalog(extractor, catalog)

	muxer := ffmpeg.New(conf.FfmpegPath)
	if !muxer.Available() {
		slog.Warn("ffmpeg not found; HD downloads will fall back to progressive streams")
	}

	controller := jobs.NewController(jobs.NewMemoryStore(), sessions, extractor, muxer, jobs.Options{
		OutputDir: conf.DownloadDir,
		Workers:   conf.MaxActiveDownloads,
		QueueSize: conf.DownloadQueueSize,
	})
	go controller.Run(ctx)

	sweeper := jobs.NewSweeper(conf.DownloadDir, conf.SweepInterval(), conf.RetentionAge())
	go sweeper.Run(ctx)

	e, err := web.NewWebserver(sessions, controller, muxer.Available)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
