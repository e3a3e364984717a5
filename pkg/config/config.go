package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FUELPHASES_KAFKA_BROKERS.
const EnvPrefix = "FUELPHASES"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`

	Log struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"fuelphases.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name" default:"fuelphases"`
		SampleRatio float64 `yaml:"sample_ratio" default:"1" validate:"gte=0,lte=1"`
		PrettyPrint bool    `yaml:"pretty_print"`
	} `yaml:"tracing"`

	ClickHouse struct {
		Enabled           bool          `yaml:"enabled" default:"true"`
		Host              string        `yaml:"host" default:"localhost"`
		Port              int           `yaml:"port" default:"9000"`
		Database          string        `yaml:"database" default:"fuelphases" validate:"required"`
		User              string        `yaml:"user" default:"default"`
		Password          string        `yaml:"password"`
		UseHTTP           bool          `yaml:"use_http"`
		AsyncInsert       bool          `yaml:"async_insert"`
		WaitForAsync      bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout       time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout       time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout      time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime  time.Duration `yaml:"max_execution_time" default:"60s"`
		ObservationsTable string        `yaml:"observations_table" default:"daily_prices"`
		PhasesTable       string        `yaml:"phases_table" default:"phase_intervals"`
		Breaker           struct {
			Enabled          bool          `yaml:"enabled" default:"true"`
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Interval         time.Duration `yaml:"interval" default:"60s"`
			Timeout          time.Duration `yaml:"timeout" default:"30s"`
			FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
		} `yaml:"breaker"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"fuelphases"`
	} `yaml:"redis"`

	Cache struct {
		TTL           time.Duration `yaml:"ttl" default:"6h"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"5m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"256"`
		LockTTL       time.Duration `yaml:"lock_ttl" default:"2m"`
	} `yaml:"cache"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Topics       struct {
			ObservationsUpdated string `yaml:"observations_updated" default:"fuelphases.observations.updated"`
			PhasesComputed      string `yaml:"phases_computed" default:"fuelphases.phases.computed"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fuelphases"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fuelphases.observations.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Prefix     string        `yaml:"prefix" default:"fuelphases:queue"`
		Workers    int           `yaml:"workers" default:"2" validate:"min=1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	} `yaml:"queue"`

	Engine struct {
		SmoothWindow           int     `yaml:"smooth_window" default:"7" validate:"min=1"`
		VolWindow              int     `yaml:"vol_window" default:"14" validate:"min=2"`
		CorrWindow             int     `yaml:"corr_window" default:"14" validate:"min=2"`
		MaxLag                 int     `yaml:"max_lag" default:"7" validate:"min=0"`
		MinRows                int     `yaml:"min_rows" default:"14" validate:"min=1"`
		MAWindow               int     `yaml:"ma_window" default:"7" validate:"min=1"`
		AsymmetryThreshold     float64 `yaml:"asymmetry_threshold" default:"1.3" validate:"gt=0"`
		CorrelationThreshold   float64 `yaml:"correlation_threshold" default:"0.5" validate:"gte=-1,lte=1"`
		VolRatioThreshold      float64 `yaml:"vol_ratio_threshold" default:"2" validate:"gt=0"`
		PriceVolPercentile     float64 `yaml:"price_vol_percentile" default:"0.8" validate:"gte=0,lte=1"`
		BenchmarkVolPercentile float64 `yaml:"benchmark_vol_percentile" default:"0.4" validate:"gte=0,lte=1"`
		VolEpsilon             float64 `yaml:"vol_epsilon" default:"0.0001" validate:"gt=0"`
		MaxGapDays             int     `yaml:"max_gap_days" default:"2" validate:"min=0"`
		MinDurationDays        int     `yaml:"min_duration_days" default:"5" validate:"min=1"`
	} `yaml:"engine"`

	Precompute struct {
		Fuels     []string      `yaml:"fuels" default:"[\"e5\",\"e10\",\"diesel\"]" validate:"min=1,dive,oneof=e5 e10 diesel"`
		OutputDir string        `yaml:"output_dir" default:"data/cache"`
		Timeout   time.Duration `yaml:"timeout" default:"5m"`
		OnStart   bool          `yaml:"on_start"`
	} `yaml:"precompute"`

	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		RPS     float64       `yaml:"rps" default:"5" validate:"gt=0"`
		Burst   int           `yaml:"burst" default:"10" validate:"min=1"`
		IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
	} `yaml:"ratelimit"`
}

// envOverrides lists the settings that may be overridden through the environment.
// Values are only applied when the variable is set.
type envOverrides struct {
	Environment        *string   `envconfig:"ENVIRONMENT"`
	ServerPort         *int      `envconfig:"SERVER_PORT"`
	LogLevel           *string   `envconfig:"LOG_LEVEL"`
	ClickHouseHost     *string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePort     *int      `envconfig:"CLICKHOUSE_PORT"`
	ClickHouseDatabase *string   `envconfig:"CLICKHOUSE_DATABASE"`
	ClickHouseUser     *string   `envconfig:"CLICKHOUSE_USER"`
	ClickHousePassword *string   `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisEnabled       *bool     `envconfig:"REDIS_ENABLED"`
	RedisHost          *string   `envconfig:"REDIS_HOST"`
	RedisPassword      *string   `envconfig:"REDIS_PASSWORD"`
	KafkaEnabled       *bool     `envconfig:"KAFKA_ENABLED"`
	KafkaBrokers       *[]string `envconfig:"KAFKA_BROKERS"`
	PrecomputeFuels    *[]string `envconfig:"PRECOMPUTE_FUELS"`
	PrecomputeOutput   *string   `envconfig:"PRECOMPUTE_OUTPUT_DIR"`
	TracingEnabled     *bool     `envconfig:"TRACING_ENABLED"`
}

var validate = validator.New()

// Default returns a configuration holding only the default values.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse parses YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, then .env (if present), then FUELPHASES_* variables.
// A missing config file falls back to the defaults.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		c = Default()
	} else if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// ApplyEnv overrides fields from FUELPHASES_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}

	if env.Environment != nil {
		c.Environment = *env.Environment
	}
	if env.ServerPort != nil {
		c.Server.Port = *env.ServerPort
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	if env.ClickHouseHost != nil {
		c.ClickHouse.Host = *env.ClickHouseHost
	}
	if env.ClickHousePort != nil {
		c.ClickHouse.Port = *env.ClickHousePort
	}
	if env.ClickHouseDatabase != nil {
		c.ClickHouse.Database = *env.ClickHouseDatabase
	}
	if env.ClickHouseUser != nil {
		c.ClickHouse.User = *env.ClickHouseUser
	}
	if env.ClickHousePassword != nil {
		c.ClickHouse.Password = *env.ClickHousePassword
	}
	if env.RedisEnabled != nil {
		c.Redis.Enabled = *env.RedisEnabled
	}
	if env.RedisHost != nil {
		c.Redis.Host = *env.RedisHost
	}
	if env.RedisPassword != nil {
		c.Redis.Password = *env.RedisPassword
	}
	if env.KafkaEnabled != nil {
		c.Kafka.Enabled = *env.KafkaEnabled
	}
	if env.KafkaBrokers != nil {
		c.Kafka.Brokers = *env.KafkaBrokers
	}
	if env.PrecomputeFuels != nil {
		c.Precompute.Fuels = *env.PrecomputeFuels
	}
	if env.PrecomputeOutput != nil {
		c.Precompute.OutputDir = *env.PrecomputeOutput
	}
	if env.TracingEnabled != nil {
		c.Tracing.Enabled = *env.TracingEnabled
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	if c.Engine.MAWindow > c.Engine.MinRows {
		return fmt.Errorf("engine.ma_window (%d) must not exceed engine.min_rows (%d)", c.Engine.MAWindow, c.Engine.MinRows)
	}
	return nil
}
