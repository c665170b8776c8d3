package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"

	"venuelink/internal/api"
	routes "venuelink/internal/api/handlers"
	"venuelink/internal/config"
	"venuelink/internal/device"
	"venuelink/internal/location"
	"venuelink/internal/model"
	"venuelink/internal/postgres"
	"venuelink/internal/proximity"
	"venuelink/internal/rabbitmq"
	"venuelink/internal/redis"
	"venuelink/internal/routing"
	"venuelink/internal/service/arrival"
	"venuelink/internal/service/tracker"
	"venuelink/internal/worker"
)

const arrivalsLoadedPerVenue = 100

func main() {
	setupLogging()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	venues, err := loadVenues(cfg)
	if err != nil {
		log.Fatalf("Failed to load venue catalog: %v", err)
	}

	initializeDatabaseAndCache(cfg)
	publisher := initializeMessaging(cfg)
	mqttClient, hub := initializeDevices(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	arrivalService := arrival.NewArrivalService(postgres.NewArrivalRepo(postgres.GetDB()), publisher)
	if err := arrivalService.InitService(ctx, venues.All(), arrivalsLoadedPerVenue); err != nil {
		log.Fatalf("Failed to initialize arrival service: %v", err)
	}

	trackerService := tracker.NewTrackerService(
		func(deviceID string) location.Platform { return hub.Platform(deviceID) },
		newResolver(cfg),
		venues,
		arrivalService,
		proximity.Config{
			Interval:  cfg.ThrottleInterval,
			Threshold: model.Distance(cfg.ArrivalThresholdKm),
		},
	)

	workersDone := worker.StartAllWorkers(ctx, arrivalService)
	reportMemoryStats()

	server := newAPIServer(cfg, api.Services{
		Info: map[string]string{
			"service": "venuelink",
			"port":    cfg.Port,
		},
		Checks: map[string]routes.Check{
			"postgres": postgres.Ping,
			"redis":    redis.Ping,
			"rabbitmq": func(context.Context) error {
				if !rabbitmq.IsConnected() {
					return errors.New("connection closed")
				}
				return nil
			},
			"mqtt": func(context.Context) error {
				if !mqttClient.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			},
		},
		Venues:   venues,
		Arrivals: arrivalService,
		Tracker:  trackerService,
	})

	go func() {
		log.Printf("API server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	waitForSignal()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// ends open distance streams before the server waits on them
	trackerService.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	cancel()
	<-workersDone

	mqttClient.Disconnect(250)
	closeConnections()
}

func setupLogging() {
	// Set up logging to file and terminal
	logFile, err := os.OpenFile("venuelink.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	// The file stays open for the lifetime of the process

	// Use MultiWriter to output logs to both terminal and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
}

func loadVenues(cfg config.Config) (*config.VenueCatalog, error) {
	venues := append([]model.Venue(nil), config.DefaultVenues...)
	if cfg.VenuesFile != "" {
		extra, err := config.LoadVenues(cfg.VenuesFile)
		if err != nil {
			return nil, err
		}
		venues = append(venues, extra...)
		log.Printf("Loaded %d venues from %s", len(extra), cfg.VenuesFile)
	}
	return config.NewVenueCatalog(venues)
}

func initializeDatabaseAndCache(cfg config.Config) {
	// Initialize PostgreSQL
	if _, err := postgres.Init(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}

	// Initialize Redis
	if _, err := redis.Init(cfg.RedisUrl); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
}

func initializeMessaging(cfg config.Config) *rabbitmq.ArrivalPublisher {
	conn, err := rabbitmq.Init(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ: %v", err)
	}

	publisher, err := rabbitmq.NewArrivalPublisher(conn)
	if err != nil {
		log.Fatalf("Failed to set up arrival publisher: %v", err)
	}
	return publisher
}

func initializeDevices(cfg config.Config) (mqtt.Client, *device.Hub) {
	var hub *device.Hub
	client := device.NewClient(cfg.MQTTBroker, cfg.MQTTClientID, func() {
		if err := hub.Subscribe(); err != nil {
			log.Printf("Failed to subscribe to device topics: %v", err)
		}
	})
	hub = device.NewHub(client)

	if err := device.Connect(client); err != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", err)
	}
	log.Printf("Connected to MQTT broker %s", cfg.MQTTBroker)
	return client, hub
}

func newResolver(cfg config.Config) *routing.CachedResolver {
	graphHopper := routing.NewGraphHopper(cfg.GraphHopperURL, cfg.GraphHopperKey, cfg.GraphHopperProfile, cfg.RoutingTimeout)
	return routing.NewCachedResolver(
		graphHopper,
		redis.NewStore(redis.GetClient()),
		cfg.RouteCacheTTL,
		cfg.RouteCacheCellLevel,
	)
}

func newAPIServer(cfg config.Config, services api.Services) *http.Server {
	// Initialize Gin router
	r := gin.Default()

	// Configure API routes
	api.SetupRouter(r, services)

	return &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}
}

func reportMemoryStats() {
	ticker := time.NewTicker(config.MemoryStatsInterval)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			log.Printf("Alloc = %v MiB, TotalAlloc = %v MiB, Sys = %v MiB, NumGC = %v",
				m.Alloc/1024/1024, m.TotalAlloc/1024/1024, m.Sys/1024/1024, m.NumGC)
		}
	}()
}

func closeConnections() {
	if err := postgres.Close(); err != nil {
		log.Printf("Error closing PostgreSQL connection: %v", err)
	}

	if err := redis.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	if err := rabbitmq.Close(); err != nil {
		log.Printf("Error closing RabbitMQ connection: %v", err)
	}

	log.Println("Connections closed successfully")
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Println("Shutdown signal received, shutting down...")
}
