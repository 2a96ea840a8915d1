package pgstore

// Config holds the Postgres target store settings.
type Config struct {
	// DSN is a postgres:// connection string.
	DSN string `mapstructure:"dsn" default:"postgres://localhost:5432/tolqc?sslmode=disable"`
	// MaxConns bounds the pool size.
	MaxConns int32 `mapstructure:"max_conns" default:"10"`
	// Migrate runs pending schema migrations on open.
	Migrate bool `mapstructure:"migrate" default:"true"`
}
