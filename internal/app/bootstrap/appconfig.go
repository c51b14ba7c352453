// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging, and the environment name; everything specific to
// the food journal lives here.
type AppConfig struct {
	// Storage backend: "mongo" or "memory". The memory backend keeps all
	// state in-process and is meant for local development and demos.
	StoreBackend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string; transactions need a replica set
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Member lookups are split into "in" queries of at most this many ids.
	MemberQueryChunk int

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Push notifications. With no credentials file, reminders are logged
	// instead of sent.
	FCMCredentialsFile string
	FCMProjectID       string
	ReminderFanout     int

	// Reminders per (sender, recipient) pair within ReminderWindow.
	ReminderLimit  int
	ReminderWindow time.Duration

	// Handler deadlines; zero fields keep the package defaults.
	Timeouts timeouts.Config

	// Audit logging: "all", "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string
}

const (
	backendMongo  = "mongo"
	backendMemory = "memory"
)
