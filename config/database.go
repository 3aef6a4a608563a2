package config

// DBConfig contains PostgreSQL configuration for the job archive.
// The archive is optional: leave Enabled false to run without one.
type DBConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"reviewer"`
	Password string `env:"PASSWORD" envDefault:"reviewer"`
	Name     string `env:"NAME"     envDefault:"reviewer"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production

	// RunMigrationsOnStart applies the job archive schema on startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the report cache and the
// payment-confirmation dedup guard. Optional: leave Enabled false to run
// with in-memory guards only.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
