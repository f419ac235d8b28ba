package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/geofence-navigator/config"
	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/geo"
)

type locationMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

const (
	stepMeters  = 40
	dwellTicks  = 3
	topicFormat = "tracker/%s/location"
)

var defaultStops = []domain.Point{
	{Lat: -6.1754, Lng: 106.8272},
	{Lat: -6.1702, Lng: 106.8310},
	{Lat: -6.1862, Lng: 106.8229},
}

// walk yields the points from a to b spaced about stepMeters apart, b included.
func walk(a, b domain.Point) ([]domain.Point, error) {
	distance, err := geo.Distance(a, b)
	if err != nil {
		return nil, err
	}
	steps := int(math.Max(1, math.Ceil(distance/stepMeters)))
	points := make([]domain.Point, 0, steps+dwellTicks)
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		points = append(points, domain.Point{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lng: a.Lng + (b.Lng-a.Lng)*f,
		})
	}
	for i := 0; i < dwellTicks; i++ {
		points = append(points, b)
	}
	return points, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	cfg := config.Load()

	stops := defaultStops
	seeds, err := config.LoadSeedGeofences(cfg.GeofenceSeedFile)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if len(seeds) > 1 {
		stops = make([]domain.Point, 0, len(seeds))
		for _, g := range seeds {
			stops = append(stops, g.Center)
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	topic := fmt.Sprintf(topicFormat, cfg.DeviceID)
	log.Printf("connected to %s, publishing to %s every %ds across %d stops", cfg.MQTTBroker, topic, intervalSec, len(stops))

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	position := stops[0]
	for leg := 1; ; leg++ {
		target := stops[leg%len(stops)]
		path, err := walk(position, target)
		if err != nil {
			log.Fatalf("walk: %v", err)
		}
		for _, p := range path {
			<-ticker.C

			payload, _ := json.Marshal(locationMessage{
				Latitude:  p.Lat,
				Longitude: p.Lng,
				Timestamp: time.Now().Unix(),
			})
			token := client.Publish(topic, 1, false, payload)
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("publish: %v", err)
				continue
			}
			log.Printf("published to %s: %s", topic, payload)
		}
		position = target
	}
}
