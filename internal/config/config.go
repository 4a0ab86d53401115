package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultCasesURL is the county-level case count table published by the New York Times.
const DefaultCasesURL = "https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-counties.csv"

// Config holds the full application configuration.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Columns    ColumnsConfig    `yaml:"columns" mapstructure:"columns"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Map        MapConfig        `yaml:"map" mapstructure:"map"`
	Track      TrackConfig      `yaml:"track" mapstructure:"track"`
	Choropleth ChoroplethConfig `yaml:"choropleth" mapstructure:"choropleth"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the four input tables. Values may be http(s) or ftp
// URLs, file:// URLs, or local paths.
type SourcesConfig struct {
	TrackURL        string `yaml:"track_url" mapstructure:"track_url"`
	BoundaryURL     string `yaml:"boundary_url" mapstructure:"boundary_url"`
	BoundaryField   string `yaml:"boundary_field" mapstructure:"boundary_field"`
	PopulationURL   string `yaml:"population_url" mapstructure:"population_url"`
	PopulationSheet string `yaml:"population_sheet" mapstructure:"population_sheet"`
	CasesURL        string `yaml:"cases_url" mapstructure:"cases_url"`
	State           string `yaml:"state" mapstructure:"state"`

	// BoundaryWhere keeps shapefile records whose attributes equal these
	// values, e.g. {STATEFP: "27"} for a national county file.
	BoundaryWhere map[string]string `yaml:"boundary_where" mapstructure:"boundary_where"`
}

// ColumnsConfig maps source headers to canonical column names, per dataset.
type ColumnsConfig struct {
	Track      map[string]string `yaml:"track" mapstructure:"track"`
	Boundary   map[string]string `yaml:"boundary" mapstructure:"boundary"`
	Population map[string]string `yaml:"population" mapstructure:"population"`
	Cases      map[string]string `yaml:"cases" mapstructure:"cases"`
}

// FetchConfig configures remote downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// MapConfig holds settings shared by every rendered map.
type MapConfig struct {
	Title       string `yaml:"title" mapstructure:"title"`
	TilesURL    string `yaml:"tiles_url" mapstructure:"tiles_url"`
	Attribution string `yaml:"attribution" mapstructure:"attribution"`
}

// TrackConfig styles the GPS track marker map.
type TrackConfig struct {
	Palette     string  `yaml:"palette" mapstructure:"palette"`
	Radius      float64 `yaml:"radius" mapstructure:"radius"`
	Opacity     float64 `yaml:"opacity" mapstructure:"opacity"`
	LegendTitle string  `yaml:"legend_title" mapstructure:"legend_title"`
	ShowRoute   bool    `yaml:"show_route" mapstructure:"show_route"`
}

// ChoroplethConfig styles the county map. Palette, highlight colour and
// legend title have no defaults and must be supplied.
type ChoroplethConfig struct {
	Palette        string    `yaml:"palette" mapstructure:"palette"`
	HighlightColor string    `yaml:"highlight_color" mapstructure:"highlight_color"`
	LegendTitle    string    `yaml:"legend_title" mapstructure:"legend_title"`
	Opacity        float64   `yaml:"opacity" mapstructure:"opacity"`
	Bins           int       `yaml:"bins" mapstructure:"bins"`
	Breaks         []float64 `yaml:"breaks" mapstructure:"breaks"`
	ShowNames      bool      `yaml:"show_names" mapstructure:"show_names"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MAPBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.cases_url", DefaultCasesURL)
	v.SetDefault("sources.state", "Minnesota")
	v.SetDefault("sources.boundary_field", "NAME")
	v.SetDefault("sources.track_url", "")
	v.SetDefault("sources.boundary_url", "")
	v.SetDefault("sources.boundary_where", map[string]string{})
	v.SetDefault("sources.population_url", "")
	v.SetDefault("sources.population_sheet", "")
	v.SetDefault("fetch.user_agent", "mapbook/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.temp_dir", "/tmp/mapbook")
	v.SetDefault("map.title", "Interactive maps")
	v.SetDefault("map.tiles_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("track.palette", "viridis")
	v.SetDefault("track.radius", 4.0)
	v.SetDefault("track.opacity", 0.8)
	v.SetDefault("track.legend_title", "Elevation (m)")
	v.SetDefault("track.show_route", false)
	v.SetDefault("choropleth.palette", "")
	v.SetDefault("choropleth.highlight_color", "")
	v.SetDefault("choropleth.legend_title", "")
	v.SetDefault("choropleth.opacity", 0.7)
	v.SetDefault("choropleth.bins", 0)
	v.SetDefault("choropleth.breaks", []float64{})
	v.SetDefault("choropleth.show_names", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given command are present.
// Modes: "track", "choropleth", "features", "render".
func (c *Config) Validate(mode string) error {
	var errs []string

	needTrack := func() {
		if c.Sources.TrackURL == "" {
			errs = append(errs, "sources.track_url is required")
		}
		if c.Track.Radius <= 0 {
			errs = append(errs, "track.radius must be > 0")
		}
		if c.Track.Opacity < 0 || c.Track.Opacity > 1 {
			errs = append(errs, "track.opacity must be between 0 and 1")
		}
	}
	needCounty := func() {
		if c.Sources.BoundaryURL == "" {
			errs = append(errs, "sources.boundary_url is required")
		}
		if c.Sources.PopulationURL == "" {
			errs = append(errs, "sources.population_url is required")
		}
		if c.Sources.CasesURL == "" {
			errs = append(errs, "sources.cases_url is required")
		}
	}
	needChoropleth := func() {
		if c.Choropleth.Palette == "" {
			errs = append(errs, "choropleth.palette is required")
		}
		if c.Choropleth.Opacity < 0 || c.Choropleth.Opacity > 1 {
			errs = append(errs, "choropleth.opacity must be between 0 and 1")
		}
		if c.Choropleth.Bins < 0 {
			errs = append(errs, "choropleth.bins must be >= 0")
		}
		if b := c.Choropleth.Breaks; len(b) > 0 {
			if len(b) < 2 {
				errs = append(errs, "choropleth.breaks needs at least two values")
			}
			for i := 1; i < len(b); i++ {
				if b[i] <= b[i-1] {
					errs = append(errs, "choropleth.breaks must be increasing")
					break
				}
			}
		}
	}

	switch mode {
	case "track":
		needTrack()
	case "features":
		needCounty()
	case "choropleth":
		needCounty()
		needChoropleth()
	case "render":
		needTrack()
		needCounty()
		needChoropleth()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Fetch.TimeoutSecs <= 0 {
		errs = append(errs, "fetch.timeout_secs must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
