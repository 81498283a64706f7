package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = "routegen.toml"

// Settings is the full runtime configuration of the route generator.
type Settings struct {
	Debug    bool             `toml:"debug"`
	Server   ServerSettings   `toml:"server"`
	Paths    PathSettings     `toml:"paths"`
	Matching MatchingSettings `toml:"matching"`
	Parser   ParserSettings   `toml:"parser"`
	Columns  ColumnSettings   `toml:"columns"`
	Output   OutputSettings   `toml:"output"`
	History  HistorySettings  `toml:"history"`
	Auth     AuthSettings     `toml:"auth"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	MaxUploadMB   int    `toml:"max_upload_mb"`
	TimeoutSecond int    `toml:"timeout_seconds"`
}

// PathSettings holds the working directories. Empty values are derived from BaseDir.
type PathSettings struct {
	BaseDir    string `toml:"base_dir"`
	Uploads    string `toml:"uploads"`
	Output     string `toml:"output"`
	References string `toml:"references"`
}

// MatchingSettings are the matcher thresholds and policies. Scores are on a 0-100 scale.
type MatchingSettings struct {
	BaseThreshold        float64  `toml:"base_threshold"`
	CityContextThreshold float64  `toml:"city_context_threshold"`
	CityThreshold        float64  `toml:"city_threshold"`
	AllowReuse           bool     `toml:"allow_reuse"`
	StripLegalForms      bool     `toml:"strip_legal_forms"`
	LegalForms           []string `toml:"legal_forms"`
}

// ParserSettings selects the candidate parser and its line classification rules.
type ParserSettings struct {
	Strategy         string   `toml:"strategy"`
	KnownCities      []string `toml:"known_cities"`
	CityTypoDistance int      `toml:"city_typo_distance"`
	StreetTokens     []string `toml:"street_tokens"`
	StreetSuffixes   []string `toml:"street_suffixes"`
	NoisePatterns    []string `toml:"noise_patterns"`
	MinRawLineLength int      `toml:"min_raw_line_length"`
}

// ColumnSettings are the header names tried for each reference column role.
type ColumnSettings struct {
	Address          []string `toml:"address"`
	Name             []string `toml:"name"`
	City             []string `toml:"city"`
	MinAverageLength float64  `toml:"min_average_length"`
}

// OutputSettings controls the route file writer.
type OutputSettings struct {
	WriteXLSX bool `toml:"write_xlsx"`
}

// HistorySettings configures the optional run history store. An empty DSN disables it.
type HistorySettings struct {
	DSN string `toml:"dsn"`
}

// AuthSettings configures the API key check of the web server.
type AuthSettings struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
}

// Default returns Settings with every default applied.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Host:          "0.0.0.0",
			Port:          8080,
			MaxUploadMB:   32,
			TimeoutSecond: 120,
		},
		Paths: PathSettings{BaseDir: "."},
		Matching: MatchingSettings{
			BaseThreshold:        80,
			CityContextThreshold: 74,
			CityThreshold:        86,
			AllowReuse:           true,
			StripLegalForms:      true,
			LegalForms: []string{
				"oy", "oyj", "ab", "ky", "tmi", "ltd", "llc", "inc", "gmbh", "as", "aps",
				"ооо", "оао", "зао", "пао", "ао", "ип", "тоо",
			},
		},
		Parser: ParserSettings{
			Strategy:         "block",
			KnownCities:      []string{},
			CityTypoDistance: 0,
			StreetTokens: []string{
				"ул.", "улица", "просп.", "проспект", "пр-т", "пер.", "переулок",
				"бул.", "бульвар", "ш.", "шоссе", "наб.", "набережная", "пл.", "площадь",
				"мкр.", "микрорайон",
			},
			StreetSuffixes: []string{
				"street", "st.", "st", "avenue", "ave.", "ave", "road", "rd.", "rd",
				"lane", "drive", "katu", "tie", "kuja", "polku", "väylä", "gatan", "vägen",
			},
			NoisePatterns: []string{
				`(?i)^\s*(транспортный|маршрутный|товарная|накладная|итого|всего|водитель|экспедитор|страница|дата|подпись)(?:[^\p{L}]|$)`,
				`(?i)^\s*(transport|manifest|route\s+list|delivery\s+list|total|driver|vehicle|page|date|signature)(?:[^\p{L}]|$)`,
				`(?i)^\s*(rahtikirja|kuljetus|kuljettaja|yhteensä|sivu|päivämäärä|allekirjoitus)(?:[^\p{L}]|$)`,
				`^\s*P\d{8,}\s*$`,
				`^[\d\s.,:;/\-#№()]+$`,
			},
			MinRawLineLength: 6,
		},
		Columns: ColumnSettings{
			Address: []string{
				"address", "адрес", "адрес доставки", "delivery address", "street",
				"улица", "osoite", "toimitusosoite", "adress", "addr",
			},
			Name: []string{
				"name", "наименование", "название", "клиент", "получатель", "магазин",
				"customer", "client", "company", "consignee", "store", "nimi", "asiakas",
			},
			City: []string{
				"city", "город", "населенный пункт", "town", "kaupunki",
				"postitoimipaikka", "locality",
			},
			MinAverageLength: 8,
		},
	}
}

// Load reads configuration: defaults -> TOML file -> environment (env wins).
// A missing file is not an error; a malformed one is.
func Load(path string) (Settings, error) {
	cfg := Default()

	if path == "" {
		path = GetEnv("ROUTE_CONFIG", defaultConfigFile)
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Settings) applyEnv() {
	s.Debug = GetEnvBool("ROUTE_DEBUG", s.Debug)

	s.Server.Host = GetEnv("WEB_HOST", s.Server.Host)
	s.Server.Port = GetEnvInt("WEB_PORT", s.Server.Port)

	s.Paths.BaseDir = GetEnv("BASE_DIR", s.Paths.BaseDir)

	s.Matching.BaseThreshold = GetEnvFloat("ROUTE_BASE_THRESHOLD", s.Matching.BaseThreshold)
	s.Matching.CityContextThreshold = GetEnvFloat("ROUTE_CITY_CONTEXT_THRESHOLD", s.Matching.CityContextThreshold)
	s.Matching.CityThreshold = GetEnvFloat("ROUTE_CITY_THRESHOLD", s.Matching.CityThreshold)
	s.Matching.AllowReuse = GetEnvBool("ROUTE_ALLOW_REUSE", s.Matching.AllowReuse)

	s.Parser.Strategy = GetEnv("ROUTE_PARSER", s.Parser.Strategy)
	s.Parser.KnownCities = GetEnvList("ROUTE_KNOWN_CITIES", s.Parser.KnownCities)

	s.Output.WriteXLSX = GetEnvBool("ROUTE_WRITE_XLSX", s.Output.WriteXLSX)
	s.History.DSN = GetEnv("ROUTE_HISTORY_DSN", s.History.DSN)

	s.Auth.Enabled = GetEnvBool("ROUTE_AUTH_ENABLED", s.Auth.Enabled)
	s.Auth.APIKey = GetEnv("ROUTE_API_KEY", s.Auth.APIKey)
}

func (s *Settings) resolvePaths() {
	base := s.Paths.BaseDir
	if base == "" {
		base = "."
	}
	if s.Paths.Uploads == "" {
		s.Paths.Uploads = filepath.Join(base, "uploads")
	}
	if s.Paths.Output == "" {
		s.Paths.Output = filepath.Join(base, "output")
	}
	if s.Paths.References == "" {
		s.Paths.References = filepath.Join(base, "data", "references")
	}
}

// Validate checks threshold ranges and required values.
func (s Settings) Validate() error {
	thresholds := map[string]float64{
		"matching.base_threshold":         s.Matching.BaseThreshold,
		"matching.city_context_threshold": s.Matching.CityContextThreshold,
		"matching.city_threshold":         s.Matching.CityThreshold,
	}
	for name, v := range thresholds {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be within 0..100, got %v", name, v)
		}
	}
	if s.Parser.Strategy == "" {
		return errors.New("parser.strategy must not be empty")
	}
	if s.Parser.CityTypoDistance < 0 {
		return fmt.Errorf("parser.city_typo_distance must not be negative, got %d", s.Parser.CityTypoDistance)
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	if s.Auth.Enabled && s.Auth.APIKey == "" {
		return errors.New("auth.api_key is required when auth is enabled")
	}
	return nil
}
