// internal/app/bootstrap/stores.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/foodjournal/internal/app/accounts"
	healthfeature "github.com/dalemusser/foodjournal/internal/app/features/health"
	"github.com/dalemusser/foodjournal/internal/app/store/audit"
	"github.com/dalemusser/foodjournal/internal/app/store/batch"
	"github.com/dalemusser/foodjournal/internal/app/store/committer"
	credentialstore "github.com/dalemusser/foodjournal/internal/app/store/credentials"
	eventstore "github.com/dalemusser/foodjournal/internal/app/store/events"
	groupstore "github.com/dalemusser/foodjournal/internal/app/store/groups"
	loginstore "github.com/dalemusser/foodjournal/internal/app/store/logins"
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	profilestore "github.com/dalemusser/foodjournal/internal/app/store/profiles"
	"github.com/dalemusser/foodjournal/internal/app/store/queries/groupmembers"
	"github.com/dalemusser/foodjournal/internal/domain/models"
	"go.uber.org/zap"
)

// profileStore is everything the handlers need from the profiles collection.
type profileStore interface {
	accounts.Profiles
	groupmembers.ProfileLister
	UpdateSelf(ctx context.Context, uid string, upd profilestore.SelfUpdate) error
}

type groupStore interface {
	Get(ctx context.Context, id string) (models.Group, error)
}

type loginStore interface {
	Create(ctx context.Context, rec models.LoginRecord) error
	ListByUser(ctx context.Context, uid string, limit int64) ([]models.LoginRecord, error)
}

type auditStore interface {
	Log(ctx context.Context, e audit.Event) error
	Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error)
}

type eventLog interface {
	Log(ctx context.Context, e models.Event) (models.Event, error)
	ListRecent(ctx context.Context, groupID string, limit int) ([]models.Event, error)
}

// backend is one storage implementation behind the app's interfaces.
type backend struct {
	name        string
	ping        healthfeature.PingFunc
	profiles    profileStore
	groups      groupStore
	committer   batch.Committer
	events      eventLog
	credentials accounts.Credentials
	logins      loginStore
	audit       auditStore
}

// openBackend binds the stores for whichever backend ConnectDB opened.
func openBackend(deps DBDeps, logger *zap.Logger) backend {
	if deps.isMongo() {
		db := deps.MongoDatabase
		return backend{
			name:        backendMongo,
			ping:        healthfeature.MongoPing(deps.MongoClient),
			profiles:    profilestore.New(db),
			groups:      groupstore.New(db),
			committer:   committer.NewMongo(db, logger),
			events:      eventstore.New(db),
			credentials: credentialstore.New(db),
			logins:      loginstore.New(db),
			audit:       audit.New(db),
		}
	}

	mem := deps.Memory
	if mem == nil {
		mem = memstore.New()
	}
	return backend{
		name:        backendMemory,
		profiles:    mem.Profiles(),
		groups:      mem.Groups(),
		committer:   mem,
		events:      mem.Events(),
		credentials: mem.Credentials(),
		logins:      mem.Logins(),
		audit:       mem.Audit(),
	}
}
