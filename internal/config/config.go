package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"seatcast/internal/apperr"
	"seatcast/internal/calendar"
	"seatcast/internal/funnel"
	"seatcast/internal/optimizer"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath    string
	LogDir      string
	DatasetPath string

	HolidayCountry   string
	HolidayICS       string
	HolidayOverrides string
	WeekdayLocale    string

	Policy   optimizer.CapacityPolicy
	Training funnel.Options

	Listen                string
	ModelCacheSize        int
	ResultCacheSize       int
	ResultTTL             time.Duration
	ForecastRatePerMinute int
	RefreshCron           string

	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	// 4. Numeric settings
	p := &parser{}
	cfg := &AppConfig{
		DataPath:         dataPath,
		LogDir:           logDir,
		DatasetPath:      getEnv("DATASET_PATH", filepath.Join(dataPath, "denemedata2.csv")),
		HolidayCountry:   getEnv("HOLIDAY_COUNTRY", "TR"),
		HolidayICS:       getEnv("HOLIDAY_ICS", ""),
		HolidayOverrides: getEnv("HOLIDAY_OVERRIDES", ""),
		WeekdayLocale:    getEnv("WEEKDAY_LOCALE", "en"),
		Policy: optimizer.CapacityPolicy{
			MaxCapacity:       p.float("MAX_CAPACITY", 45),
			TargetUtilization: p.float("TARGET_UTILIZATION", 0.9),
		},
		Training: funnel.Options{
			Trees: p.int("FOREST_TREES", 100),
			Seed:  int64(p.int("FOREST_SEED", 42)),
		},
		Listen:                getEnv("LISTEN", "127.0.0.1:8080"),
		ModelCacheSize:        p.int("MODEL_CACHE_SIZE", 8),
		ResultCacheSize:       p.int("RESULT_CACHE_SIZE", 64),
		ResultTTL:             time.Duration(p.int("RESULT_TTL_MINUTES", 60)) * time.Minute,
		ForecastRatePerMinute: p.int("FORECAST_RATE_PER_MINUTE", 30),
		RefreshCron:           getEnv("REFRESH_CRON", ""),
		EnableMermaidCharts:   getEnvBool("ENABLE_MERMAID_CHARTS", true),
	}
	if p.err != nil {
		return nil, p.err
	}

	// 5. Policy is checked here so a bad .env fails at startup
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Training.Trees <= 0 {
		return nil, apperr.NewInvalidSettingError("FOREST_TREES", strconv.Itoa(cfg.Training.Trees), nil)
	}

	return cfg, nil
}

// HolidayProvider combines the built-in calendar with the optional ICS feed,
// then applies the optional override file on top.
func (c *AppConfig) HolidayProvider() (calendar.Provider, error) {
	var provider calendar.Provider = calendar.Builtin{}
	if c.HolidayICS != "" {
		provider = calendar.Union(calendar.Builtin{}, calendar.NewICSProvider(c.HolidayICS))
	}
	if c.HolidayOverrides != "" {
		overrides, err := calendar.LoadOverrides(c.HolidayOverrides, provider)
		if err != nil {
			return nil, apperr.NewInvalidSettingError("HOLIDAY_OVERRIDES", c.HolidayOverrides, err)
		}
		provider = overrides
	}
	return provider, nil
}

// parser collects the first invalid numeric setting.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return f
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = apperr.NewInvalidSettingError(key, value, err)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
