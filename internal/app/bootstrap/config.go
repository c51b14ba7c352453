// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the food journal.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: FOODJOURNAL_MONGO_URI, FOODJOURNAL_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: backendMongo, Desc: "Storage backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI (replica set required for transactions)"},
	{Name: "mongo_database", Default: "food_journal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "member_query_chunk", Default: profilestore.MaxInQuery, Desc: "Max ids per member lookup query (1-30)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "foodjournal-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Push notifications
	{Name: "fcm_credentials_file", Default: "", Desc: "Firebase service account JSON; blank logs reminders instead of sending"},
	{Name: "fcm_project_id", Default: "", Desc: "Firebase project id (blank reads it from the credentials)"},
	{Name: "reminder_fanout", Default: 8, Desc: "Concurrent sends when reminding a whole group"},
	{Name: "reminder_limit", Default: 3, Desc: "Reminders allowed per sender and recipient within the window"},
	{Name: "reminder_window", Default: "10m", Desc: "Reminder rate-limit window (e.g., 10m, 1h)"},

	// Handler deadlines (see system/timeouts)
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and single writes"},
	{Name: "timeout_long", Default: "20s", Desc: "Deadline for membership batches"},
	{Name: "timeout_fanout", Default: "45s", Desc: "Deadline for a whole-group reminder"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, FOODJOURNAL_* for app), and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FOODJOURNAL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     appValues.String("store_backend"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		MemberQueryChunk: appValues.Int("member_query_chunk"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		FCMCredentialsFile: appValues.String("fcm_credentials_file"),
		FCMProjectID:       appValues.String("fcm_project_id"),
		ReminderFanout:     appValues.Int("reminder_fanout"),
		ReminderLimit:      appValues.Int("reminder_limit"),
		ReminderWindow:     appValues.Duration("reminder_window", 10*time.Minute),

		Timeouts: timeouts.Config{
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
			Fanout: appValues.Duration("timeout_fanout", timeouts.DefaultFanout),
		},

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is only checked when the mongo backend is selected, so
// the memory backend runs without any database configuration.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case backendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case backendMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("memory store backend in production: all data is lost on restart")
		}
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", backendMongo, backendMemory, appCfg.StoreBackend)
	}

	if appCfg.MemberQueryChunk < 1 || appCfg.MemberQueryChunk > profilestore.MaxInQuery {
		return fmt.Errorf("member_query_chunk must be between 1 and %d, got %d", profilestore.MaxInQuery, appCfg.MemberQueryChunk)
	}
	if appCfg.ReminderLimit < 1 {
		return fmt.Errorf("reminder_limit must be positive, got %d", appCfg.ReminderLimit)
	}
	if appCfg.ReminderWindow <= 0 {
		return fmt.Errorf("reminder_window must be positive, got %s", appCfg.ReminderWindow)
	}
	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be all, db, log, or off, got %q", key, v)
		}
	}
	if appCfg.FCMCredentialsFile == "" {
		logger.Info("no fcm_credentials_file; reminders will be logged, not delivered")
	}
	return nil
}
