package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Scheduler struct {
		// WorkerCount stays at 1: one crawl job in flight process-wide keeps
		// the browser strategy inside its memory budget. The Redis queue makes
		// the guarantee hold across worker processes too.
		WorkerCount  int           `yaml:"worker_count"`
		JobTimeout   time.Duration `yaml:"job_timeout"`
		MaxAttempts  int           `yaml:"max_attempts"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"scheduler"`

	Scraper struct {
		UserAgent     string        `yaml:"user_agent"`
		HeadlessMode  bool          `yaml:"headless_mode"`
		StealthMode   bool          `yaml:"stealth_mode"`
		PageTimeout   time.Duration `yaml:"page_timeout"`
		PagesPerMin   int           `yaml:"pages_per_minute"`
		SettleDelay   time.Duration `yaml:"settle_delay"`
		ErrorTextSize int           `yaml:"error_text_size"`
	} `yaml:"scraper"`

	Redis struct {
		URL      string        `yaml:"url"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"redis"`

	Database struct {
		URL      string `yaml:"url"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"database"`

	Vendors struct {
		Path string `yaml:"path"`
	} `yaml:"vendors"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

var placeholderPattern = regexp.MustCompile(`^\$\{[^}]+\}$`)

// clearUnsetPlaceholders treats a YAML value that is still a literal ${VAR}
// placeholder after expansion as unset. Without this, a config binding
// database.url to an absent env var would make the URL non-empty and defeat
// the in-memory fallback.
func (c *Config) clearUnsetPlaceholders() {
	for _, field := range []*string{&c.Database.URL, &c.Redis.URL, &c.Redis.Password} {
		if placeholderPattern.MatchString(*field) {
			*field = ""
		}
	}

	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379"
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Scheduler.WorkerCount = 1
	config.Scheduler.JobTimeout = time.Hour
	config.Scheduler.MaxAttempts = 3
	config.Scheduler.RetryBackoff = 5 * time.Second
	config.Scheduler.PollInterval = 2 * time.Second

	config.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	config.Scraper.HeadlessMode = true
	config.Scraper.StealthMode = true
	config.Scraper.PageTimeout = 30 * time.Second
	config.Scraper.PagesPerMin = 60
	config.Scraper.SettleDelay = 2 * time.Second
	config.Scraper.ErrorTextSize = 1000

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	config.Database.MaxConns = 4

	config.Vendors.Path = "configs/vendors.yaml"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}

			config.clearUnsetPlaceholders()
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		c.Database.URL = databaseURL
	}

	if vendorsPath := os.Getenv("VENDORS_PATH"); vendorsPath != "" {
		c.Vendors.Path = vendorsPath
	}

	if jobTimeout := os.Getenv("JOB_TIMEOUT"); jobTimeout != "" {
		if timeout, err := time.ParseDuration(jobTimeout); err == nil {
			c.Scheduler.JobTimeout = timeout
		}
	}

	if maxAttempts := os.Getenv("JOB_MAX_ATTEMPTS"); maxAttempts != "" {
		if attempts, err := strconv.Atoi(maxAttempts); err == nil {
			c.Scheduler.MaxAttempts = attempts
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}
}
