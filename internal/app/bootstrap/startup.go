// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/foodjournal/internal/app/system/notify"
	"github.com/dalemusser/foodjournal/internal/app/system/ratelimit"
	"github.com/dalemusser/foodjournal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the process-wide collaborators that outlive a single handler
// build: the push dispatcher and the rate limiters' sweep goroutines.
type services struct {
	notifier  notify.Dispatcher
	reminders *ratelimit.Limiter
	logins    *ratelimit.LoginLimiter
}

var (
	svcMu sync.Mutex
	svc   *services
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(appCfg.Timeouts)

	_, err := startServices(ctx, appCfg, logger)
	return err
}

// startServices builds the services once. BuildHandler calls it too so a
// handler can be built without going through Startup.
func startServices(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*services, error) {
	svcMu.Lock()
	defer svcMu.Unlock()
	if svc != nil {
		return svc, nil
	}

	var d notify.Dispatcher
	if appCfg.FCMCredentialsFile != "" {
		fcm, err := notify.NewFCM(ctx, appCfg.FCMProjectID, appCfg.FCMCredentialsFile, logger)
		if err != nil {
			logger.Error("firebase messaging init failed", zap.Error(err))
			return nil, err
		}
		d = fcm
	} else {
		d = notify.NewLogDispatcher(logger)
	}

	svc = &services{
		notifier:  d,
		reminders: ratelimit.New(appCfg.ReminderLimit, appCfg.ReminderWindow),
		logins:    ratelimit.NewLoginLimiter(),
	}
	return svc, nil
}

func stopServices() {
	svcMu.Lock()
	defer svcMu.Unlock()
	if svc == nil {
		return
	}
	svc.reminders.Stop()
	svc.logins.Stop()
	svc = nil
}
