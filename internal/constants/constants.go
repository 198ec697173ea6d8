package constants

import "time"

const (
	DefaultLockTTL   = 5 * time.Minute
	MinLockExtension = 1 * time.Second
	MaxLockExtension = 1 * time.Hour
)

const (
	NakkaFetchTimeout = 10 * time.Second
	DatabaseTimeout   = 5 * time.Second
	RequestTimeout    = 30 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMinConns        = 2
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MaxBatchThrows = 50
	MaxThrowScore  = 180
	MaxCheckout    = 170
)
