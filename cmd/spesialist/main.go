package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/config"
	"github.com/karl-run/spesialist/internal/container"
	"github.com/karl-run/spesialist/internal/infrastructure/bus"
	"github.com/karl-run/spesialist/pkg/utils"
)

func main() {
	// .env er valgfri, miljøvariabler vinner uansett
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("kunne ikke laste konfigurasjon: %v", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		log.Fatalf("kunne ikke opprette logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starter spesialist",
		zap.String("topic", cfg.Bus.Topic),
		zap.String("consumer_group", cfg.Bus.ConsumerGroup))

	// In-memory-kanal som transport og kilde. Meldinger vi selv
	// publiserer kommer tilbake på kanalen, ukjente hendelsesnavn
	// hoppes over av konsumenten.
	kanal := bus.NyKanal(256)
	defer kanal.Lukk()

	c, err := container.NewContainer(cfg, kanal, kanal, logger)
	if err != nil {
		logger.Fatal("kunne ikke bygge container", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		logger.Fatal("kunne ikke starte tjenestene", zap.Error(err))
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- c.HTTPServer().Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("mottok signal, avslutter", zap.String("signal", sig.String()))
	case err := <-httpErr:
		if err != nil {
			logger.Error("http-serveren stoppet", zap.Error(err))
		}
	}

	cancel()

	if err := c.HTTPServer().Stop(); err != nil {
		logger.Error("feil ved stopp av http-server", zap.Error(err))
	}
	if err := c.Close(); err != nil {
		logger.Error("feil ved nedstenging", zap.Error(err))
	}

	logger.Info("spesialist avsluttet")
}
