package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/db"
	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/geolocation"
	"github.com/USA-RedDragon/campus-nav/internal/metrics"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/resolver"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"
)

const mqttDisconnectQuiesce = 250

// dependencies are shared by every map. Anything stateful per map is built
// in factory.
type dependencies struct {
	config    *config.Config
	metrics   *metrics.Metrics
	buildings navmap.BuildingLoader
	paths     navmap.PathLoader
	snapshots navmap.SnapshotStore
	router    routing.Router
	nats      *nats.Conn
	mqtt      mqtt.Client
}

func newDependencies(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, metrics *metrics.Metrics) (*dependencies, error) {
	deps := &dependencies{
		config:    cfg,
		metrics:   metrics,
		snapshots: db.NewSnapshotStore(gormDB),
	}

	sourceOpts := gazetteer.SourceOptions{
		HTTPClient: &http.Client{Timeout: cfg.Feeds.Timeout},
	}
	if isS3(cfg.Feeds.Buildings) || isS3(cfg.Feeds.Paths) {
		client, err := newS3Client(ctx, cfg.Feeds.S3)
		if err != nil {
			return nil, err
		}
		sourceOpts.S3 = client
	}

	buildings, err := gazetteer.NewSource(cfg.Feeds.Buildings, sourceOpts)
	if err != nil {
		return nil, fmt.Errorf("invalid building feed: %w", err)
	}
	deps.buildings = gazetteer.NewLoader(buildings, metrics)

	if cfg.Feeds.Paths != "" {
		paths, err := gazetteer.NewSource(cfg.Feeds.Paths, sourceOpts)
		if err != nil {
			return nil, fmt.Errorf("invalid path feed: %w", err)
		}
		deps.paths = gazetteer.NewPathLoader(paths, metrics)
	}

	if cfg.Routing.Backend != config.RoutingBackendGraph {
		osrm := routing.NewOSRM(cfg.Routing.OSRM.URL, cfg.Routing.OSRM.Profile, &http.Client{Timeout: cfg.Routing.Timeout})
		deps.router = routing.Traced("osrm", osrm)
	}

	switch cfg.Geolocation.Source {
	case config.GeolocationSourceNATS:
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("campus-nav"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		slog.Info("Connected to NATS", "url", cfg.NATS.URL)
		deps.nats = conn
	case config.GeolocationSourceMQTT:
		client, err := geolocation.ConnectMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		slog.Info("Connected to MQTT", "broker", cfg.MQTT.Broker)
		deps.mqtt = client
	case config.GeolocationSourcePush:
	}

	return deps, nil
}

func isS3(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

func newS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// geolocationSource returns a source private to the map with the given id.
func (d *dependencies) geolocationSource(id string) geolocation.Source {
	switch {
	case d.nats != nil:
		return geolocation.NewNATSSource(d.nats, d.config.NATS.SubjectPrefix+"."+id)
	case d.mqtt != nil:
		return geolocation.NewMQTTSource(d.mqtt, d.config.MQTT.TopicPrefix+"/"+id)
	default:
		return geolocation.NewPushSource()
	}
}

func (d *dependencies) factory() navmap.Factory {
	cfg := d.config
	return func(id string) (navmap.Options, error) {
		return navmap.Options{
			Buildings:    d.buildings,
			Paths:        d.paths,
			Snapshots:    d.snapshots,
			Router:       d.router,
			WalkwayGraph: cfg.Routing.Backend != config.RoutingBackendOSRM,
			Graph: routing.GraphOptions{
				WalkingSpeed:    cfg.Routing.WalkingSpeed,
				MaxSnapDistance: cfg.Routing.MaxSnapDistance,
			},
			RouteTimeout: cfg.Routing.Timeout,
			Geolocation:  d.geolocationSource(id),
			GeolocationOptions: geolocation.Options{
				Watch:        cfg.Geolocation.Watch,
				HighAccuracy: cfg.Geolocation.HighAccuracy,
				Timeout:      cfg.Geolocation.Timeout,
			},
			RerouteDistance: cfg.Geolocation.RerouteDistance,
			Search: resolver.Options{
				Threshold: cfg.Search.Threshold,
				Distance:  cfg.Search.Distance,
				Limit:     cfg.Search.Limit,
			},
			Center:              geo.Coordinate{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
			Zoom:                cfg.Map.Zoom,
			FocusZoom:           cfg.Map.FocusZoom,
			PopularDestinations: cfg.Map.PopularDestinations,
			Metrics:             d.metrics,
		}.Broadcast(render.NewBroadcaster()), nil
	}
}

func (d *dependencies) Close() {
	if d.nats != nil {
		d.nats.Close()
	}
	if d.mqtt != nil {
		d.mqtt.Disconnect(mqttDisconnectQuiesce)
	}
}
