// Package config loads process configuration from the environment once at
// startup. The resulting struct is passed explicitly to the factories; no
// package holds configuration state of its own.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend driver names accepted by FINSTMT_BACKEND.
const (
	BackendDocument   = "document"
	BackendRelational = "relational"
	BackendMemory     = "memory"
)

// Config is the full process configuration.
type Config struct {
	// Backend selects the storage adapter for the process lifetime.
	Backend string

	// HTTPAddr is the listen address of the API server.
	HTTPAddr string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string

	// Relational backend settings.
	DSN            string
	RequestTimeout time.Duration
	MaxOpenConns   int

	// Document backend settings.
	DynamoRegion    string
	DynamoEndpoint  string
	DynamoPrefix    string
	AccessKeyID     string
	SecretAccessKey string

	// Workbook archive settings.
	BlobDriver string // fs|s3|memory
	BlobFSRoot string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

// FromEnv reads FINSTMT_* variables, applying defaults for anything unset.
func FromEnv() Config {
	return Config{
		Backend:         getenv("FINSTMT_BACKEND", BackendDocument),
		HTTPAddr:        getenv("FINSTMT_HTTP_ADDR", ":8080"),
		LogLevel:        getenv("FINSTMT_LOG_LEVEL", "info"),
		DSN:             os.Getenv("FINSTMT_DSN"),
		RequestTimeout:  getDuration("FINSTMT_REQUEST_TIMEOUT", 30*time.Second),
		MaxOpenConns:    getInt("FINSTMT_MAX_OPEN_CONNS", 0),
		DynamoRegion:    os.Getenv("FINSTMT_DYNAMO_REGION"),
		DynamoEndpoint:  os.Getenv("FINSTMT_DYNAMO_ENDPOINT"),
		DynamoPrefix:    os.Getenv("FINSTMT_DYNAMO_PREFIX"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		BlobDriver:      getenv("FINSTMT_BLOB_DRIVER", "fs"),
		BlobFSRoot:      getenv("FINSTMT_BLOB_FS_ROOT", "./blobdata"),
		S3Bucket:        os.Getenv("FINSTMT_BLOB_S3_BUCKET"),
		S3Region:        os.Getenv("FINSTMT_BLOB_S3_REGION"),
		S3Endpoint:      os.Getenv("FINSTMT_BLOB_S3_ENDPOINT"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
