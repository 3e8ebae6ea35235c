package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTP        `json:"http"`
	Persistence Persistence `json:"persistence"`
	JWT         JWT         `json:"jwt"`
	Feeds       Feeds       `json:"feeds"`
	Routing     Routing     `json:"routing"`
	Search      Search      `json:"search"`
	Map         Map         `json:"map"`
	Geolocation Geolocation `json:"geolocation"`
	NATS        NATS        `json:"nats"`
	MQTT        MQTT        `json:"mqtt"`
}

type JWT struct {
	Secret string `json:"secret"`
}

type Persistence struct {
	Database Database `json:"database"`
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver          DatabaseDriver `json:"driver"`
	Database        string         `json:"database"`
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	Host            string         `json:"host"`
	Port            uint16         `json:"port"`
	ExtraParameters string         `json:"extra_parameters" yaml:"extra_parameters"`
}

type HTTPListener struct {
	IPV4Host string `json:"ipv4_host" yaml:"ipv4_host"`
	IPV6Host string `json:"ipv6_host" yaml:"ipv6_host"`
	Port     uint16 `json:"port"`
}

type Tracing struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

type PProf struct {
	Enabled bool `json:"enabled"`
}

type Metrics struct {
	HTTPListener `yaml:",inline"`
	Enabled      bool `json:"enabled"`
}

type HTTP struct {
	HTTPListener   `yaml:",inline"`
	Tracing        Tracing  `json:"tracing"`
	PProf          PProf    `json:"pprof"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	Metrics        Metrics  `json:"metrics"`
	CORSHosts      []string `json:"cors_hosts" yaml:"cors_hosts"`
}

type S3 struct {
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

// Feeds locates the building and walkway feeds. Each is an http(s) URL, an
// s3://bucket/key URI or a file path.
type Feeds struct {
	Buildings string        `json:"buildings"`
	Paths     string        `json:"paths"`
	S3        S3            `json:"s3"`
	Timeout   time.Duration `json:"timeout"`
}

type RoutingBackend string

const (
	RoutingBackendOSRM         RoutingBackend = "osrm"
	RoutingBackendGraph        RoutingBackend = "graph"
	RoutingBackendOSRMAndGraph RoutingBackend = "osrm+graph"
)

type OSRM struct {
	URL     string `json:"url"`
	Profile string `json:"profile"`
}

type Routing struct {
	Backend         RoutingBackend `json:"backend"`
	OSRM            OSRM           `json:"osrm"`
	Timeout         time.Duration  `json:"timeout"`
	WalkingSpeed    float64        `json:"walking_speed" yaml:"walking_speed"`
	MaxSnapDistance float64        `json:"max_snap_distance" yaml:"max_snap_distance"`
}

type Search struct {
	Threshold float64 `json:"threshold"`
	Distance  int     `json:"distance"`
	Limit     int     `json:"limit"`
}

type Map struct {
	CenterLat           float64  `json:"center_lat" yaml:"center_lat"`
	CenterLng           float64  `json:"center_lng" yaml:"center_lng"`
	Zoom                int      `json:"zoom"`
	FocusZoom           int      `json:"focus_zoom" yaml:"focus_zoom"`
	PopularDestinations []string `json:"popular_destinations" yaml:"popular_destinations"`
}

type GeolocationSource string

const (
	GeolocationSourcePush GeolocationSource = "push"
	GeolocationSourceNATS GeolocationSource = "nats"
	GeolocationSourceMQTT GeolocationSource = "mqtt"
)

type Geolocation struct {
	Source          GeolocationSource `json:"source"`
	Watch           bool              `json:"watch"`
	HighAccuracy    bool              `json:"high_accuracy" yaml:"high_accuracy"`
	Timeout         time.Duration     `json:"timeout"`
	RerouteDistance float64           `json:"reroute_distance" yaml:"reroute_distance"`
}

type NATS struct {
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

type MQTT struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix" yaml:"topic_prefix"`
	ClientID    string `json:"client_id" yaml:"client_id"`
}

//nolint:golint,gochecknoglobals
var (
	ConfigFileKey                         = "config"
	HTTPIPV4HostKey                       = "http.ipv4_host"
	HTTPIPV6HostKey                       = "http.ipv6_host"
	HTTPPortKey                           = "http.port"
	HTTPTracingEnabledKey                 = "http.tracing.enabled"
	HTTPTracingOTLPEndKey                 = "http.tracing.otlp_endpoint"
	HTTPPProfEnabledKey                   = "http.pprof.enabled"
	HTTPTrustedProxiesKey                 = "http.trusted_proxies"
	HTTPMetricsEnabledKey                 = "http.metrics.enabled"
	HTTPMetricsIPV4HostKey                = "http.metrics.ipv4_host"
	HTTPMetricsIPV6HostKey                = "http.metrics.ipv6_host"
	HTTPMetricsPortKey                    = "http.metrics.port"
	HTTPCORSHostsKey                      = "http.cors_hosts"
	PersistenceDatabaseDriverKey          = "persistence.database.driver"
	PersistenceDatabaseDatabaseKey        = "persistence.database.database"
	PersistenceDatabaseUsernameKey        = "persistence.database.username"
	PersistenceDatabasePasswordKey        = "persistence.database.password"
	PersistenceDatabaseHostKey            = "persistence.database.host"
	PersistenceDatabasePortKey            = "persistence.database.port"
	PersistenceDatabaseExtraParametersKey = "persistence.database.extra_parameters"
	JWTSecretKey                          = "jwt.secret"
	FeedsBuildingsKey                     = "feeds.buildings"
	FeedsPathsKey                         = "feeds.paths"
	FeedsS3RegionKey                      = "feeds.s3.region"
	FeedsS3EndpointKey                    = "feeds.s3.endpoint"
	FeedsTimeoutKey                       = "feeds.timeout"
	RoutingBackendKey                     = "routing.backend"
	RoutingOSRMURLKey                     = "routing.osrm.url"
	RoutingOSRMProfileKey                 = "routing.osrm.profile"
	RoutingTimeoutKey                     = "routing.timeout"
	RoutingWalkingSpeedKey                = "routing.walking_speed"
	RoutingMaxSnapDistanceKey             = "routing.max_snap_distance"
	SearchThresholdKey                    = "search.threshold"
	SearchDistanceKey                     = "search.distance"
	SearchLimitKey                        = "search.limit"
	MapCenterLatKey                       = "map.center_lat"
	MapCenterLngKey                       = "map.center_lng"
	MapZoomKey                            = "map.zoom"
	MapFocusZoomKey                       = "map.focus_zoom"
	MapPopularDestinationsKey             = "map.popular_destinations"
	GeolocationSourceKey                  = "geolocation.source"
	GeolocationWatchKey                   = "geolocation.watch"
	GeolocationHighAccuracyKey            = "geolocation.high_accuracy"
	GeolocationTimeoutKey                 = "geolocation.timeout"
	GeolocationRerouteDistanceKey         = "geolocation.reroute_distance"
	NATSURLKey                            = "nats.url"
	NATSSubjectPrefixKey                  = "nats.subject_prefix"
	MQTTBrokerKey                         = "mqtt.broker"
	MQTTTopicPrefixKey                    = "mqtt.topic_prefix"
	MQTTClientIDKey                       = "mqtt.client_id"
)

const (
	DefaultConfigPath                  = "config.yaml"
	DefaultHTTPIPV4Host                = "0.0.0.0"
	DefaultHTTPIPV6Host                = "::"
	DefaultHTTPPort                    = 8080
	DefaultHTTPMetricsIPV4Host         = "127.0.0.1"
	DefaultHTTPMetricsIPV6Host         = "::1"
	DefaultHTTPMetricsPort             = 8081
	DefaultPersistenceDatabaseDriver   = DatabaseDriverSQLite
	DefaultPersistenceDatabaseDatabase = "campus-nav.db"
	DefaultFeedsTimeout                = 10 * time.Second
	DefaultRoutingBackend              = RoutingBackendOSRM
	DefaultRoutingOSRMURL              = "http://localhost:5000"
	DefaultRoutingOSRMProfile          = "foot"
	DefaultRoutingTimeout              = 10 * time.Second
	DefaultRoutingWalkingSpeed         = 1.4
	DefaultRoutingMaxSnapDistance      = 250.0
	DefaultSearchThreshold             = 0.4
	DefaultSearchDistance              = 100
	DefaultSearchLimit                 = 8
	DefaultMapCenterLat                = 28.6103
	DefaultMapCenterLng                = 77.0370
	DefaultMapZoom                     = 17
	DefaultMapFocusZoom                = 19
	DefaultGeolocationSource           = GeolocationSourcePush
	DefaultGeolocationTimeout          = 10 * time.Second
	DefaultGeolocationRerouteDistance  = 15.0
	DefaultNATSSubjectPrefix           = "campusnav.position"
	DefaultMQTTTopicPrefix             = "campusnav/position"
	DefaultMQTTClientID                = "campus-nav"
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(ConfigFileKey, "c", DefaultConfigPath, "Config file path")
	cmd.Flags().String(HTTPIPV4HostKey, DefaultHTTPIPV4Host, "HTTP server IPv4 host")
	cmd.Flags().String(HTTPIPV6HostKey, DefaultHTTPIPV6Host, "HTTP server IPv6 host")
	cmd.Flags().Uint16(HTTPPortKey, DefaultHTTPPort, "HTTP server port")
	cmd.Flags().Bool(HTTPTracingEnabledKey, false, "Enable Open Telemetry tracing")
	cmd.Flags().String(HTTPTracingOTLPEndKey, "", "Open Telemetry endpoint")
	cmd.Flags().Bool(HTTPPProfEnabledKey, false, "Enable pprof")
	cmd.Flags().StringSlice(HTTPTrustedProxiesKey, []string{}, "Comma-separated list of trusted proxies")
	cmd.Flags().Bool(HTTPMetricsEnabledKey, false, "Enable metrics server")
	cmd.Flags().String(HTTPMetricsIPV4HostKey, DefaultHTTPMetricsIPV4Host, "Metrics server IPv4 host")
	cmd.Flags().String(HTTPMetricsIPV6HostKey, DefaultHTTPMetricsIPV6Host, "Metrics server IPv6 host")
	cmd.Flags().Uint16(HTTPMetricsPortKey, DefaultHTTPMetricsPort, "Metrics server port")
	cmd.Flags().StringSlice(HTTPCORSHostsKey, []string{}, "Comma-separated list of CORS hosts")
	cmd.Flags().String(PersistenceDatabaseDriverKey, string(DefaultPersistenceDatabaseDriver), "Database driver (sqlite, postgres or mysql)")
	cmd.Flags().String(PersistenceDatabaseDatabaseKey, DefaultPersistenceDatabaseDatabase, "Database path")
	cmd.Flags().String(PersistenceDatabaseUsernameKey, "", "Database username")
	cmd.Flags().String(PersistenceDatabasePasswordKey, "", "Database password")
	cmd.Flags().String(PersistenceDatabaseHostKey, "", "Database host")
	cmd.Flags().Uint16(PersistenceDatabasePortKey, 0, "Database port")
	cmd.Flags().String(PersistenceDatabaseExtraParametersKey, "", "Database extra parameters")
	cmd.Flags().String(JWTSecretKey, "", "JWT signing secret")
	cmd.Flags().String(FeedsBuildingsKey, "", "Building feed URL, s3:// URI or path")
	cmd.Flags().String(FeedsPathsKey, "", "Walkway feed URL, s3:// URI or path")
	cmd.Flags().String(FeedsS3RegionKey, "", "S3 region for s3:// feeds")
	cmd.Flags().String(FeedsS3EndpointKey, "", "S3 endpoint override for s3:// feeds")
	cmd.Flags().Duration(FeedsTimeoutKey, DefaultFeedsTimeout, "Feed fetch timeout")
	cmd.Flags().String(RoutingBackendKey, string(DefaultRoutingBackend), "Routing backend (osrm, graph or osrm+graph)")
	cmd.Flags().String(RoutingOSRMURLKey, DefaultRoutingOSRMURL, "OSRM server URL")
	cmd.Flags().String(RoutingOSRMProfileKey, DefaultRoutingOSRMProfile, "OSRM routing profile")
	cmd.Flags().Duration(RoutingTimeoutKey, DefaultRoutingTimeout, "Route computation timeout")
	cmd.Flags().Float64(RoutingWalkingSpeedKey, DefaultRoutingWalkingSpeed, "Walking speed in meters per second for the walkway graph")
	cmd.Flags().Float64(RoutingMaxSnapDistanceKey, DefaultRoutingMaxSnapDistance, "Maximum distance in meters from an endpoint to the walkway graph")
	cmd.Flags().Float64(SearchThresholdKey, DefaultSearchThreshold, "Fuzzy search cutoff in (0, 1], lower is stricter and 0 selects the default")
	cmd.Flags().Int(SearchDistanceKey, DefaultSearchDistance, "How far into a name a match may start")
	cmd.Flags().Int(SearchLimitKey, DefaultSearchLimit, "Default number of search results")
	cmd.Flags().Float64(MapCenterLatKey, DefaultMapCenterLat, "Initial map center latitude")
	cmd.Flags().Float64(MapCenterLngKey, DefaultMapCenterLng, "Initial map center longitude")
	cmd.Flags().Int(MapZoomKey, DefaultMapZoom, "Initial map zoom")
	cmd.Flags().Int(MapFocusZoomKey, DefaultMapFocusZoom, "Zoom used when focusing a location")
	cmd.Flags().StringSlice(MapPopularDestinationsKey, []string{}, "Comma-separated list of popular destination names")
	cmd.Flags().String(GeolocationSourceKey, string(DefaultGeolocationSource), "Geolocation source (push, nats or mqtt)")
	cmd.Flags().Bool(GeolocationWatchKey, false, "Keep tracking the position after the first fix")
	cmd.Flags().Bool(GeolocationHighAccuracyKey, false, "Request high accuracy fixes")
	cmd.Flags().Duration(GeolocationTimeoutKey, DefaultGeolocationTimeout, "Time to wait for each position fix")
	cmd.Flags().Float64(GeolocationRerouteDistanceKey, DefaultGeolocationRerouteDistance, "Distance in meters the user must move before rerouting")
	cmd.Flags().String(NATSURLKey, "", "NATS server URL")
	cmd.Flags().String(NATSSubjectPrefixKey, DefaultNATSSubjectPrefix, "NATS subject prefix for position messages")
	cmd.Flags().String(MQTTBrokerKey, "", "MQTT broker URL")
	cmd.Flags().String(MQTTTopicPrefixKey, DefaultMQTTTopicPrefix, "MQTT topic prefix for position messages")
	cmd.Flags().String(MQTTClientIDKey, DefaultMQTTClientID, "MQTT client ID")
}

var (
	ErrJWTSecretRequired               = errors.New("JWT secret is required")
	ErrOTLPEndpointRequired            = errors.New("OTLP endpoint is required when tracing is enabled")
	ErrDBHostRequired                  = errors.New("Database host is required")
	ErrDBDatabaseRequired              = errors.New("Database name is required")
	ErrDatabaseDriverRequired          = errors.New("Database driver is required")
	ErrUnsupportedDatabaseDriver       = errors.New("Unsupported database driver")
	ErrBuildingsFeedRequired           = errors.New("Building feed is required")
	ErrPathsFeedRequired               = errors.New("Walkway feed is required for graph routing")
	ErrUnsupportedRoutingBackend       = errors.New("Unsupported routing backend")
	ErrOSRMURLRequired                 = errors.New("OSRM URL is required")
	ErrInvalidWalkingSpeed             = errors.New("Walking speed must be positive")
	ErrInvalidSearchThreshold          = errors.New("Search threshold must be between 0 and 1")
	ErrInvalidMapCenter                = errors.New("Map center is not a valid coordinate")
	ErrUnsupportedGeolocationSource    = errors.New("Unsupported geolocation source")
	ErrNATSURLRequired                 = errors.New("NATS URL is required for the nats geolocation source")
	ErrMQTTBrokerRequired              = errors.New("MQTT broker is required for the mqtt geolocation source")
	ErrInvalidGeolocationRerouteLength = errors.New("Reroute distance must not be negative")
)

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrJWTSecretRequired
	}
	if c.HTTP.Tracing.Enabled && c.HTTP.Tracing.OTLPEndpoint == "" {
		return ErrOTLPEndpointRequired
	}
	if c.Persistence.Database.Driver == "" {
		return ErrDatabaseDriverRequired
	}
	switch c.Persistence.Database.Driver {
	case DatabaseDriverSQLite, DatabaseDriverPostgres, DatabaseDriverMySQL:
	default:
		return ErrUnsupportedDatabaseDriver
	}
	if c.Persistence.Database.Driver != DatabaseDriverSQLite && c.Persistence.Database.Host == "" {
		return ErrDBHostRequired
	}
	if c.Persistence.Database.Database == "" {
		return ErrDBDatabaseRequired
	}
	if c.Feeds.Buildings == "" {
		return ErrBuildingsFeedRequired
	}

	switch c.Routing.Backend {
	case RoutingBackendOSRM:
	case RoutingBackendGraph, RoutingBackendOSRMAndGraph:
		if c.Feeds.Paths == "" {
			return ErrPathsFeedRequired
		}
	default:
		return ErrUnsupportedRoutingBackend
	}
	if c.Routing.Backend != RoutingBackendGraph && c.Routing.OSRM.URL == "" {
		return ErrOSRMURLRequired
	}
	if c.Routing.WalkingSpeed <= 0 {
		return ErrInvalidWalkingSpeed
	}

	if c.Search.Threshold <= 0 || c.Search.Threshold > 1 {
		return ErrInvalidSearchThreshold
	}
	if c.Map.CenterLat < -90 || c.Map.CenterLat > 90 || c.Map.CenterLng < -180 || c.Map.CenterLng > 180 {
		return ErrInvalidMapCenter
	}

	switch c.Geolocation.Source {
	case GeolocationSourcePush:
	case GeolocationSourceNATS:
		if c.NATS.URL == "" {
			return ErrNATSURLRequired
		}
	case GeolocationSourceMQTT:
		if c.MQTT.Broker == "" {
			return ErrMQTTBrokerRequired
		}
	default:
		return ErrUnsupportedGeolocationSource
	}
	if c.Geolocation.RerouteDistance < 0 {
		return ErrInvalidGeolocationRerouteLength
	}

	return nil
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	var config Config

	// Load flags from envs
	ctx, cancel := context.WithCancelCause(cmd.Context())
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if ctx.Err() != nil {
			return
		}
		optName := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"), ".", "__")
		if val, ok := os.LookupEnv(optName); !f.Changed && ok {
			if err := f.Value.Set(val); err != nil {
				cancel(err)
			}
			f.Changed = true
		}
	})
	if ctx.Err() != nil {
		return &config, fmt.Errorf("failed to load env: %w", context.Cause(ctx))
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return &config, fmt.Errorf("failed to get config path: %w", err)
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &config, fmt.Errorf("failed to read config: %w", err)
		} else if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return &config, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	err = overrideFlags(&config, cmd)
	if err != nil {
		return &config, fmt.Errorf("failed to override flags: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.HTTP.IPV4Host == "" {
		config.HTTP.IPV4Host = DefaultHTTPIPV4Host
	}
	if config.HTTP.IPV6Host == "" {
		config.HTTP.IPV6Host = DefaultHTTPIPV6Host
	}
	if config.HTTP.Port == 0 {
		config.HTTP.Port = DefaultHTTPPort
	}
	if config.HTTP.Metrics.IPV4Host == "" {
		config.HTTP.Metrics.IPV4Host = DefaultHTTPMetricsIPV4Host
	}
	if config.HTTP.Metrics.IPV6Host == "" {
		config.HTTP.Metrics.IPV6Host = DefaultHTTPMetricsIPV6Host
	}
	if config.HTTP.Metrics.Port == 0 {
		config.HTTP.Metrics.Port = DefaultHTTPMetricsPort
	}
	if config.Persistence.Database.Driver == "" {
		config.Persistence.Database.Driver = DefaultPersistenceDatabaseDriver
	}
	if config.Persistence.Database.Database == "" {
		config.Persistence.Database.Database = DefaultPersistenceDatabaseDatabase
	}
	if config.Feeds.Timeout == 0 {
		config.Feeds.Timeout = DefaultFeedsTimeout
	}
	if config.Routing.Backend == "" {
		config.Routing.Backend = DefaultRoutingBackend
	}
	if config.Routing.OSRM.URL == "" {
		config.Routing.OSRM.URL = DefaultRoutingOSRMURL
	}
	if config.Routing.OSRM.Profile == "" {
		config.Routing.OSRM.Profile = DefaultRoutingOSRMProfile
	}
	if config.Routing.Timeout == 0 {
		config.Routing.Timeout = DefaultRoutingTimeout
	}
	if config.Routing.WalkingSpeed == 0 {
		config.Routing.WalkingSpeed = DefaultRoutingWalkingSpeed
	}
	if config.Routing.MaxSnapDistance == 0 {
		config.Routing.MaxSnapDistance = DefaultRoutingMaxSnapDistance
	}
	if config.Search.Threshold == 0 {
		config.Search.Threshold = DefaultSearchThreshold
	}
	if config.Search.Distance == 0 {
		config.Search.Distance = DefaultSearchDistance
	}
	if config.Search.Limit == 0 {
		config.Search.Limit = DefaultSearchLimit
	}
	if config.Map.CenterLat == 0 && config.Map.CenterLng == 0 {
		config.Map.CenterLat = DefaultMapCenterLat
		config.Map.CenterLng = DefaultMapCenterLng
	}
	if config.Map.Zoom == 0 {
		config.Map.Zoom = DefaultMapZoom
	}
	if config.Map.FocusZoom == 0 {
		config.Map.FocusZoom = DefaultMapFocusZoom
	}
	if config.Geolocation.Source == "" {
		config.Geolocation.Source = DefaultGeolocationSource
	}
	if config.Geolocation.Timeout == 0 {
		config.Geolocation.Timeout = DefaultGeolocationTimeout
	}
	if config.Geolocation.RerouteDistance == 0 {
		config.Geolocation.RerouteDistance = DefaultGeolocationRerouteDistance
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if config.MQTT.TopicPrefix == "" {
		config.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = DefaultMQTTClientID
	}
}

//nolint:golint,gocyclo
func overrideFlags(config *Config, cmd *cobra.Command) error {
	var err error
	flags := cmd.Flags()

	if flags.Changed(HTTPIPV4HostKey) {
		config.HTTP.IPV4Host, err = flags.GetString(HTTPIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv4 host: %w", err)
		}
	}

	if flags.Changed(HTTPIPV6HostKey) {
		config.HTTP.IPV6Host, err = flags.GetString(HTTPIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv6 host: %w", err)
		}
	}

	if flags.Changed(HTTPPortKey) {
		config.HTTP.Port, err = flags.GetUint16(HTTPPortKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP port: %w", err)
		}
	}

	if flags.Changed(HTTPPProfEnabledKey) {
		config.HTTP.PProf.Enabled, err = flags.GetBool(HTTPPProfEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get pprof enabled: %w", err)
		}
	}

	if flags.Changed(HTTPTrustedProxiesKey) {
		config.HTTP.TrustedProxies, err = flags.GetStringSlice(HTTPTrustedProxiesKey)
		if err != nil {
			return fmt.Errorf("failed to get trusted proxies: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsEnabledKey) {
		config.HTTP.Metrics.Enabled, err = flags.GetBool(HTTPMetricsEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics enabled: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsIPV4HostKey) {
		config.HTTP.Metrics.IPV4Host, err = flags.GetString(HTTPMetricsIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv4 host: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsIPV6HostKey) {
		config.HTTP.Metrics.IPV6Host, err = flags.GetString(HTTPMetricsIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv6 host: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsPortKey) {
		config.HTTP.Metrics.Port, err = flags.GetUint16(HTTPMetricsPortKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics port: %w", err)
		}
	}

	if flags.Changed(HTTPTracingEnabledKey) {
		config.HTTP.Tracing.Enabled, err = flags.GetBool(HTTPTracingEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing enabled: %w", err)
		}
	}

	if flags.Changed(HTTPTracingOTLPEndKey) {
		config.HTTP.Tracing.OTLPEndpoint, err = flags.GetString(HTTPTracingOTLPEndKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing OTLP endpoint: %w", err)
		}
	}

	if flags.Changed(HTTPCORSHostsKey) {
		config.HTTP.CORSHosts, err = flags.GetStringSlice(HTTPCORSHostsKey)
		if err != nil {
			return fmt.Errorf("failed to get CORS hosts: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseDriverKey) {
		drvr, err := flags.GetString(PersistenceDatabaseDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get database driver: %w", err)
		}
		config.Persistence.Database.Driver = DatabaseDriver(strings.ToLower(drvr))
	}

	if flags.Changed(PersistenceDatabaseDatabaseKey) {
		config.Persistence.Database.Database, err = flags.GetString(PersistenceDatabaseDatabaseKey)
		if err != nil {
			return fmt.Errorf("failed to get database name: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseUsernameKey) {
		config.Persistence.Database.Username, err = flags.GetString(PersistenceDatabaseUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get database username: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabasePasswordKey) {
		config.Persistence.Database.Password, err = flags.GetString(PersistenceDatabasePasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get database password: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseHostKey) {
		config.Persistence.Database.Host, err = flags.GetString(PersistenceDatabaseHostKey)
		if err != nil {
			return fmt.Errorf("failed to get database host: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabasePortKey) {
		config.Persistence.Database.Port, err = flags.GetUint16(PersistenceDatabasePortKey)
		if err != nil {
			return fmt.Errorf("failed to get database port: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseExtraParametersKey) {
		config.Persistence.Database.ExtraParameters, err = flags.GetString(PersistenceDatabaseExtraParametersKey)
		if err != nil {
			return fmt.Errorf("failed to get database extra parameters: %w", err)
		}
	}

	if flags.Changed(JWTSecretKey) {
		config.JWT.Secret, err = flags.GetString(JWTSecretKey)
		if err != nil {
			return fmt.Errorf("failed to get JWT secret: %w", err)
		}
	}

	if flags.Changed(FeedsBuildingsKey) {
		config.Feeds.Buildings, err = flags.GetString(FeedsBuildingsKey)
		if err != nil {
			return fmt.Errorf("failed to get building feed: %w", err)
		}
	}

	if flags.Changed(FeedsPathsKey) {
		config.Feeds.Paths, err = flags.GetString(FeedsPathsKey)
		if err != nil {
			return fmt.Errorf("failed to get walkway feed: %w", err)
		}
	}

	if flags.Changed(FeedsS3RegionKey) {
		config.Feeds.S3.Region, err = flags.GetString(FeedsS3RegionKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 region: %w", err)
		}
	}

	if flags.Changed(FeedsS3EndpointKey) {
		config.Feeds.S3.Endpoint, err = flags.GetString(FeedsS3EndpointKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 endpoint: %w", err)
		}
	}

	if flags.Changed(FeedsTimeoutKey) {
		config.Feeds.Timeout, err = flags.GetDuration(FeedsTimeoutKey)
		if err != nil {
			return fmt.Errorf("failed to get feed timeout: %w", err)
		}
	}

	if flags.Changed(RoutingBackendKey) {
		backend, err := flags.GetString(RoutingBackendKey)
		if err != nil {
			return fmt.Errorf("failed to get routing backend: %w", err)
		}
		config.Routing.Backend = RoutingBackend(strings.ToLower(backend))
	}

	if flags.Changed(RoutingOSRMURLKey) {
		config.Routing.OSRM.URL, err = flags.GetString(RoutingOSRMURLKey)
		if err != nil {
			return fmt.Errorf("failed to get OSRM URL: %w", err)
		}
	}

	if flags.Changed(RoutingOSRMProfileKey) {
		config.Routing.OSRM.Profile, err = flags.GetString(RoutingOSRMProfileKey)
		if err != nil {
			return fmt.Errorf("failed to get OSRM profile: %w", err)
		}
	}

	if flags.Changed(RoutingTimeoutKey) {
		config.Routing.Timeout, err = flags.GetDuration(RoutingTimeoutKey)
		if err != nil {
			return fmt.Errorf("failed to get routing timeout: %w", err)
		}
	}

	if flags.Changed(RoutingWalkingSpeedKey) {
		config.Routing.WalkingSpeed, err = flags.GetFloat64(RoutingWalkingSpeedKey)
		if err != nil {
			return fmt.Errorf("failed to get walking speed: %w", err)
		}
	}

	if flags.Changed(RoutingMaxSnapDistanceKey) {
		config.Routing.MaxSnapDistance, err = flags.GetFloat64(RoutingMaxSnapDistanceKey)
		if err != nil {
			return fmt.Errorf("failed to get max snap distance: %w", err)
		}
	}

	if flags.Changed(SearchThresholdKey) {
		config.Search.Threshold, err = flags.GetFloat64(SearchThresholdKey)
		if err != nil {
			return fmt.Errorf("failed to get search threshold: %w", err)
		}
	}

	if flags.Changed(SearchDistanceKey) {
		config.Search.Distance, err = flags.GetInt(SearchDistanceKey)
		if err != nil {
			return fmt.Errorf("failed to get search distance: %w", err)
		}
	}

	if flags.Changed(SearchLimitKey) {
		config.Search.Limit, err = flags.GetInt(SearchLimitKey)
		if err != nil {
			return fmt.Errorf("failed to get search limit: %w", err)
		}
	}

	if flags.Changed(MapCenterLatKey) {
		config.Map.CenterLat, err = flags.GetFloat64(MapCenterLatKey)
		if err != nil {
			return fmt.Errorf("failed to get map center latitude: %w", err)
		}
	}

	if flags.Changed(MapCenterLngKey) {
		config.Map.CenterLng, err = flags.GetFloat64(MapCenterLngKey)
		if err != nil {
			return fmt.Errorf("failed to get map center longitude: %w", err)
		}
	}

	if flags.Changed(MapZoomKey) {
		config.Map.Zoom, err = flags.GetInt(MapZoomKey)
		if err != nil {
			return fmt.Errorf("failed to get map zoom: %w", err)
		}
	}

	if flags.Changed(MapFocusZoomKey) {
		config.Map.FocusZoom, err = flags.GetInt(MapFocusZoomKey)
		if err != nil {
			return fmt.Errorf("failed to get map focus zoom: %w", err)
		}
	}

	if flags.Changed(MapPopularDestinationsKey) {
		config.Map.PopularDestinations, err = flags.GetStringSlice(MapPopularDestinationsKey)
		if err != nil {
			return fmt.Errorf("failed to get popular destinations: %w", err)
		}
	}

	if flags.Changed(GeolocationSourceKey) {
		source, err := flags.GetString(GeolocationSourceKey)
		if err != nil {
			return fmt.Errorf("failed to get geolocation source: %w", err)
		}
		config.Geolocation.Source = GeolocationSource(strings.ToLower(source))
	}

	if flags.Changed(GeolocationWatchKey) {
		config.Geolocation.Watch, err = flags.GetBool(GeolocationWatchKey)
		if err != nil {
			return fmt.Errorf("failed to get geolocation watch: %w", err)
		}
	}

	if flags.Changed(GeolocationHighAccuracyKey) {
		config.Geolocation.HighAccuracy, err = flags.GetBool(GeolocationHighAccuracyKey)
		if err != nil {
			return fmt.Errorf("failed to get geolocation high accuracy: %w", err)
		}
	}

	if flags.Changed(GeolocationTimeoutKey) {
		config.Geolocation.Timeout, err = flags.GetDuration(GeolocationTimeoutKey)
		if err != nil {
			return fmt.Errorf("failed to get geolocation timeout: %w", err)
		}
	}

	if flags.Changed(GeolocationRerouteDistanceKey) {
		config.Geolocation.RerouteDistance, err = flags.GetFloat64(GeolocationRerouteDistanceKey)
		if err != nil {
			return fmt.Errorf("failed to get reroute distance: %w", err)
		}
	}

	if flags.Changed(NATSURLKey) {
		config.NATS.URL, err = flags.GetString(NATSURLKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS URL: %w", err)
		}
	}

	if flags.Changed(NATSSubjectPrefixKey) {
		config.NATS.SubjectPrefix, err = flags.GetString(NATSSubjectPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS subject prefix: %w", err)
		}
	}

	if flags.Changed(MQTTBrokerKey) {
		config.MQTT.Broker, err = flags.GetString(MQTTBrokerKey)
		if err != nil {
			return fmt.Errorf("failed to get MQTT broker: %w", err)
		}
	}

	if flags.Changed(MQTTTopicPrefixKey) {
		config.MQTT.TopicPrefix, err = flags.GetString(MQTTTopicPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get MQTT topic prefix: %w", err)
		}
	}

	if flags.Changed(MQTTClientIDKey) {
		config.MQTT.ClientID, err = flags.GetString(MQTTClientIDKey)
		if err != nil {
			return fmt.Errorf("failed to get MQTT client ID: %w", err)
		}
	}

	return nil
}
