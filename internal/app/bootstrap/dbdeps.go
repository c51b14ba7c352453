// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/foodjournal/internal/app/store/memstore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Exactly one of the Mongo pair or Memory is set, depending on store_backend.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Memory *memstore.Store
}
