package repository

import "time"

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

type sqlOptions struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	migrate         bool
}

// SQLOption applies a configuration option to Open.
type SQLOption func(*sqlOptions)

// WithMaxOpenConns sets the connection pool size.
func WithMaxOpenConns(n int) SQLOption {
	return func(o *sqlOptions) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns sets the number of idle connections kept.
func WithMaxIdleConns(n int) SQLOption {
	return func(o *sqlOptions) {
		if n >= 0 {
			o.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime sets the maximum connection age.
func WithConnMaxLifetime(d time.Duration) SQLOption {
	return func(o *sqlOptions) {
		if d > 0 {
			o.connMaxLifetime = d
		}
	}
}

// WithMigrations controls whether Open applies schema migrations.
func WithMigrations(enabled bool) SQLOption {
	return func(o *sqlOptions) {
		o.migrate = enabled
	}
}
