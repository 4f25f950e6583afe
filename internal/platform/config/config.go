// Package config builds application configuration from environment variables
// so main stays lean. Feature flags consulted inside step preconditions are
// snapshotted per request, never read live from here.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the proofing engine needs at startup.
type Config struct {
	Addr string

	// RedisURL enables the Redis-backed session, throttle, and job stores.
	// Empty means in-memory stores (dev and tests).
	RedisURL string
	// PostgresURL enables the Postgres profile store. Empty means in-memory.
	PostgresURL string

	SessionTTL time.Duration

	Vendor   Vendor
	Throttle Throttle

	// ResolutionJobTTL bounds how long a dispatched vendor job may stay
	// pending before polls report it expired.
	ResolutionJobTTL time.Duration
	// VendorTimeout bounds the detached vendor call itself.
	VendorTimeout time.Duration

	// HybridFlowEnabled gates the link_sent branch of the flow.
	HybridFlowEnabled bool
	// SelfieRequired forces the vendor with facial-match capability.
	SelfieRequired bool

	// SNSTopicARN enables the SNS notifier for re-proofing completions.
	SNSTopicARN string
	AWSRegion   string
}

// Vendor configures document-auth vendor selection.
type Vendor struct {
	Primary          string
	Alternate        string
	Randomize        bool
	RandomizePercent int
	// BaseURLs per vendor name; the mock vendor ignores its entry.
	AcuantBaseURL     string
	LexisNexisBaseURL string
}

// Throttle holds per-category attempt limits. Categories are independent.
type Throttle struct {
	ProofSSNMaxAttempts   int
	ProofSSNWindow        time.Duration
	ResolutionMaxAttempts int
	ResolutionWindow      time.Duration
	OTPMaxAttempts        int
	OTPWindow             time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Limits mirror production settings conservatively.
func FromEnv() Config {
	return Config{
		Addr:             getenv("PROOFING_ADDR", ":8080"),
		RedisURL:         os.Getenv("REDIS_URL"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		SessionTTL:       getduration("SESSION_TTL", 30*time.Minute),
		ResolutionJobTTL: getduration("RESOLUTION_JOB_TTL", 2*time.Minute),
		VendorTimeout:    getduration("VENDOR_TIMEOUT", 90*time.Second),

		Vendor: Vendor{
			Primary:           getenv("DOC_AUTH_VENDOR", "mock"),
			Alternate:         getenv("DOC_AUTH_VENDOR_ALTERNATE", ""),
			Randomize:         getbool("DOC_AUTH_VENDOR_RANDOMIZE", false),
			RandomizePercent:  getint("DOC_AUTH_VENDOR_RANDOMIZE_PERCENT", 0),
			AcuantBaseURL:     os.Getenv("ACUANT_BASE_URL"),
			LexisNexisBaseURL: os.Getenv("LEXISNEXIS_BASE_URL"),
		},

		Throttle: Throttle{
			ProofSSNMaxAttempts:   getint("THROTTLE_PROOF_SSN_MAX_ATTEMPTS", 10),
			ProofSSNWindow:        getduration("THROTTLE_PROOF_SSN_WINDOW", time.Hour),
			ResolutionMaxAttempts: getint("THROTTLE_RESOLUTION_MAX_ATTEMPTS", 5),
			ResolutionWindow:      getduration("THROTTLE_RESOLUTION_WINDOW", 6*time.Hour),
			OTPMaxAttempts:        getint("THROTTLE_OTP_MAX_ATTEMPTS", 5),
			OTPWindow:             getduration("THROTTLE_OTP_WINDOW", 10*time.Minute),
		},

		HybridFlowEnabled: getbool("HYBRID_FLOW_ENABLED", true),
		SelfieRequired:    getbool("SELFIE_REQUIRED", false),

		SNSTopicARN: os.Getenv("SNS_TOPIC_ARN"),
		AWSRegion:   getenv("AWS_REGION", "us-east-1"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
