package main

import (
	"context"
	"log"
	"time"

	"pixpull/internal/domain/delivery"
	"pixpull/internal/domain/stream"
	"pixpull/internal/infrastructure/postgres"
	httphandlers "pixpull/internal/interfaces/http"
	"pixpull/internal/shared/config"
	"pixpull/internal/testdata"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	StreamHandler *httphandlers.StreamHandler
	UtilHandler   *httphandlers.UtilHandler

	// Services (for the sweeper)
	StreamService *stream.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Create tables if they don't exist
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	streamRepo := postgres.NewStreamRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	holderRepo := postgres.NewAccountHolderRepository(db)

	// Initialize domain services
	streamService := stream.NewService(streamRepo, cfg.Stream.MaxActive)
	deliveryService := delivery.NewService(streamService, messageRepo, cfg.Stream.PollInterval, cfg.Stream.MaxWait)

	// Initialize test data generator
	generator := testdata.NewGenerator(messageRepo, holderRepo)

	// Initialize handlers
	streamHandler := httphandlers.NewStreamHandler(deliveryService, streamService, cfg.Stream.MaxWait)
	utilHandler := httphandlers.NewUtilHandler(generator)

	return &Dependencies{
		DB:            db,
		StreamHandler: streamHandler,
		UtilHandler:   utilHandler,
		StreamService: streamService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
