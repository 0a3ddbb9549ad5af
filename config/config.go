package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"5"`
	RateLimitMs    int           `envconfig:"RATE_LIMIT_MS" default:"0"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"120s"`
	SearchDeadline time.Duration `envconfig:"SEARCH_DEADLINE" default:"180s"`

	// FetchMode selects the fetch capability: "http" or "browser".
	FetchMode     string `envconfig:"FETCH_MODE" default:"http"`
	ScraperAPIKey string `envconfig:"SCRAPER_API_KEY"`
	ScraperAPIURL string `envconfig:"SCRAPER_API_URL" default:"http://api.scraperapi.com"`
	ChromeBin     string `envconfig:"CHROME_BIN"`

	ProbeURLs    bool          `envconfig:"PROBE_URLS" default:"false"`
	ProbeRetries int           `envconfig:"PROBE_RETRIES" default:"2"`
	ProbeTimeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"3s"`

	// EmbeddingProvider is "", "openai" or "ollama". Empty disables embeddings.
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	OllamaURL         string `envconfig:"OLLAMA_URL" default:"http://localhost:11434/api"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"nomic-embed-text"`

	GeminiAPIKey string  `envconfig:"GEMINI_API_KEY"`
	RewriteModel string  `envconfig:"REWRITE_MODEL" default:"gemini-2.0-flash"`
	RewriteTemp  float32 `envconfig:"REWRITE_TEMPERATURE" default:"0.3"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"search"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:"search123"`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"powersearch"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	SearchLogEnabled bool   `envconfig:"SEARCH_LOG_ENABLED" default:"false"`

	CSVOutputPath string `envconfig:"CSV_OUTPUT_PATH" default:"./output/raw_listings.csv"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		log.Printf("[config] Invalid environment, using defaults where possible: %v", err)
	}
	return cfg
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// Workers caps the configured concurrency by the number of sites to query.
func (c *Config) Workers(siteCount int) int {
	n := c.MaxConcurrency
	if n <= 0 {
		n = 1
	}
	if siteCount > 0 && siteCount < n {
		n = siteCount
	}
	return n
}
