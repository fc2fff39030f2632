package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel     string `env:"LOG_LEVEL"`
	Postgres     Postgres
	Redis        Redis
	API          API
	Cache        Cache
	Jobs         Jobs
	GoogleDrive  GoogleDrive
	RiskFreeRate float64 `env:"RISK_FREE_RATE" envDefault:"0.02"`
	// LedgerFile switches the process to one-shot mode: analyze the given
	// normalized ledger and exit instead of running as a daemon.
	LedgerFile string `env:"LEDGER_FILE" envDefault:""`
	UserID     string `env:"USER_ID" envDefault:"local"`
	ReportDir  string `env:"REPORT_DIR" envDefault:"."`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG"`
	Timeout  time.Duration `env:"API_TIMEOUT"`
	StooqApi StooqApi
}

type StooqApi struct {
	Url string `env:"STOOQ_API_URL"`
}

type Cache struct {
	// HoldingsExpiration is short: holdings change with every ledger upload.
	HoldingsExpiration time.Duration `env:"CACHE_HOLDINGS_EXPIRATION" envDefault:"1m"`
	// MetricsExpiration is long: performance metrics are expensive and tolerate staleness.
	MetricsExpiration time.Duration `env:"CACHE_METRICS_EXPIRATION" envDefault:"24h"`
	// PriceShortExpiration applies to prices for today and yesterday, which the
	// source may still revise intraday.
	PriceShortExpiration time.Duration `env:"CACHE_PRICE_SHORT_EXPIRATION" envDefault:"15m"`
	// PriceFinalExpiration applies to settled historical closes (finality rule).
	PriceFinalExpiration time.Duration `env:"CACHE_PRICE_FINAL_EXPIRATION" envDefault:"87600h"`
	// BalancesExpiration is effectively "until the ledger changes".
	BalancesExpiration time.Duration `env:"CACHE_BALANCES_EXPIRATION" envDefault:"8760h"`
}

type Jobs struct {
	CacheMaintenanceInterval time.Duration `env:"CACHE_MAINTENANCE_JOB_INTERVAL" envDefault:"1h"`
	DriveCleanupInterval     time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL" envDefault:"24h"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
