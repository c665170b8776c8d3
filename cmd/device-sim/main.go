package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"venuelink/internal/config"
	"venuelink/internal/device"
	"venuelink/internal/model"
)

var (
	broker   string
	deviceID string
)

var rootCmd = &cobra.Command{
	Use:   "device-sim",
	Short: "Simulated attendee device for venuelink",
	Long:  `Publishes permission state and positions over MQTT the way an attendee's phone does.`,
}

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Walk toward a venue",
	Long:  `Publish the authorization state, then walk toward the venue whenever the service asks for location updates.`,
	RunE:  runWalk,
}

var authCmd = &cobra.Command{
	Use:   "auth [not_determined|restricted|denied|authorized]",
	Short: "Publish an authorization change",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuth,
}

var (
	venueID  string
	startLat float64
	startLon float64
	speed    float64
	interval time.Duration
	authName string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&broker, "broker", "b", "tcp://localhost:1883", "MQTT broker URL")
	rootCmd.PersistentFlags().StringVarP(&deviceID, "device", "d", "sim-1", "Device ID")

	walkCmd.Flags().StringVar(&venueID, "venue", "kofst", "Destination venue ID")
	walkCmd.Flags().Float64Var(&startLat, "lat", 37.4979, "Start latitude")
	walkCmd.Flags().Float64Var(&startLon, "lon", 127.0276, "Start longitude")
	walkCmd.Flags().Float64VarP(&speed, "speed", "s", 1.4, "Walking speed in m/s")
	walkCmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Position update interval")
	walkCmd.Flags().StringVar(&authName, "auth", model.AuthorizationAuthorized.String(), "Authorization state to report")

	rootCmd.AddCommand(walkCmd, authCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func clientID() string {
	return "venuelink-sim-" + deviceID
}

func runWalk(cmd *cobra.Command, args []string) error {
	auth, err := model.ParseAuthorizationState(authName)
	if err != nil {
		return err
	}

	catalog, err := config.NewVenueCatalog(config.DefaultVenues)
	if err != nil {
		return err
	}
	venue, ok := catalog.Venue(venueID)
	if !ok {
		return fmt.Errorf("unknown venue %q", venueID)
	}

	sim := &simulator{
		deviceID: deviceID,
		auth:     auth,
		speed:    speed,
		interval: interval,
		destLat:  venue.Lat,
		destLon:  venue.Lon,
		now:      time.Now,
		pos:      model.Position{Lat: startLat, Lon: startLon, Timestamp: time.Now()},
	}

	var client mqtt.Client
	client = device.NewClient(broker, clientID(), func() {
		if token := client.Subscribe(device.ControlTopic(deviceID), 1, sim.handleControl); token.Wait() && token.Error() != nil {
			log.Printf("subscribe control topic: %v", token.Error())
		}
	})
	sim.client = client
	if err := device.Connect(client); err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := sim.publishAuthorization(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Device %s waiting for commands, walking to %s at %.1f m/s", deviceID, venue.Name, speed)
	return sim.run(ctx)
}

func runAuth(cmd *cobra.Command, args []string) error {
	auth, err := model.ParseAuthorizationState(args[0])
	if err != nil {
		return err
	}

	client := device.NewClient(broker, clientID(), nil)
	if err := device.Connect(client); err != nil {
		return err
	}
	defer client.Disconnect(250)

	sim := &simulator{client: client, deviceID: deviceID, auth: auth}
	return sim.publishAuthorization()
}
