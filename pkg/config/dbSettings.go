package config

// DbSettings holds configuration for the outcome store backend.
type DbSettings struct {
	Type string `mapstructure:"type" validate:"required,oneof=postgres mongo spanner"`
	// DSN is used by the postgres backend.
	DSN string `mapstructure:"dsn"`
	// URI is used by the mongo and spanner backends (spanner: full database path).
	URI string `mapstructure:"uri"`
	// Name is the mongo database name.
	Name string `mapstructure:"name"`
}
