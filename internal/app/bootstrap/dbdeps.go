// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/eventkey/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook after ConnectDB, so the
// services built in Startup hang off the App pointer.
type DBDeps struct {
	EventKeyMongoClient   *mongo.Client
	EventKeyMongoDatabase *mongo.Database

	// Redis is nil when redis_url is blank.
	Redis *notify.Redis

	App *Services
}
