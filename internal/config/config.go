package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderFake   = "fake"
)

// Config reúne tudo que o processo lê do ambiente ou do arquivo YAML opcional.
type Config struct {
	APIKey           string        `mapstructure:"api_key"`
	CSVFilePath      string        `mapstructure:"csv_file_path"`
	Port             int           `mapstructure:"port"`
	Model            string        `mapstructure:"model"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	CacheDisplayName string        `mapstructure:"cache_display_name"`
	Provider         string        `mapstructure:"provider"`
	LogLevel         string        `mapstructure:"log_level"`
	AuditDBPath      string        `mapstructure:"audit_db_path"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	MaxSessions      int           `mapstructure:"max_sessions"`
}

// Addr retorna o endereço de escuta do servidor HTTP.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load monta a configuração a partir dos defaults, do arquivo em path (se informado)
// e das variáveis de ambiente, nessa ordem de precedência.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.normalize()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("csv_file_path", "")
	v.SetDefault("port", 3000)
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("cache_ttl", "300s")
	v.SetDefault("cache_display_name", "Dados de possíveis alunos que irão evadir")
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("log_level", "info")
	v.SetDefault("audit_db_path", "")
	v.SetDefault("request_timeout", "120s")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("max_sessions", 1000)
}

// bindEnv liga cada chave à sua variável; os nomes antigos (GOOGLE_API_KEY, csvFilePath) continuam aceitos.
func bindEnv(v *viper.Viper) error {
	bindings := [][]string{
		{"api_key", "API_KEY", "GOOGLE_API_KEY"},
		{"csv_file_path", "CSV_FILE_PATH", "csvFilePath"},
		{"port", "PORT"},
		{"model", "MODEL"},
		{"cache_ttl", "CACHE_TTL"},
		{"cache_display_name", "CACHE_DISPLAY_NAME"},
		{"provider", "PROVIDER"},
		{"log_level", "LOG_LEVEL"},
		{"audit_db_path", "AUDIT_DB_PATH"},
		{"request_timeout", "REQUEST_TIMEOUT"},
		{"shutdown_timeout", "SHUTDOWN_TIMEOUT"},
		{"max_sessions", "MAX_SESSIONS"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return fmt.Errorf("binding env for %s failed: %w", b[0], err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.CSVFilePath = strings.TrimSpace(c.CSVFilePath)
	c.Model = strings.TrimSpace(c.Model)
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.AuditDBPath = strings.TrimSpace(c.AuditDBPath)
}

func validate(c *Config) error {
	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("API_KEY is not set")
		}
	case ProviderFake:
	default:
		return fmt.Errorf("unknown provider %q (expected %q or %q)", c.Provider, ProviderGemini, ProviderFake)
	}
	if c.CSVFilePath == "" {
		return fmt.Errorf("CSV_FILE_PATH is not set")
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	return nil
}
