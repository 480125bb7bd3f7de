// Package documentstore implements the user store on top of gocloud.dev/docstore,
// so the same code serves the in-memory collection and MongoDB.
package documentstore

import (
	"context"
	"net/url"
	"os"
	"strings"

	"accounts/config"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gocloud.dev/docstore"
	_ "gocloud.dev/docstore/memdocstore" // registers mem://
	"gocloud.dev/docstore/mongodocstore"
)

const (
	mongoServerURLEnv   = "MONGO_SERVER_URL"
	defaultMongoIDField = "email"
)

// Collection is an open user collection together with the client that owns its connection, if any.
type Collection struct {
	*docstore.Collection

	client *mongo.Client
}

// Open opens the collection named by cfg.URL.
// mongo:// URLs are dialed here so the client can be pinged and disconnected with the app lifecycle;
// every other scheme goes through docstore's URL mux.
func Open(ctx context.Context, cfg *config.StoreConfig) (*Collection, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid store url %q", cfg.URL)
	}

	if u.Scheme == mongodocstore.Scheme {
		return openMongo(ctx, u, cfg.ServerURL)
	}

	coll, err := docstore.OpenCollection(ctx, cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open collection %q", cfg.URL)
	}

	return &Collection{Collection: coll}, nil
}

func openMongo(ctx context.Context, u *url.URL, serverURL string) (*Collection, error) {
	if serverURL == "" {
		serverURL = os.Getenv(mongoServerURLEnv)
	}
	if serverURL == "" {
		return nil, errors.Errorf("store.serverUrl or %s must be set for mongo collections", mongoServerURLEnv)
	}

	dbName := u.Host
	collName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" || collName == "" {
		return nil, errors.Errorf("mongo store url must look like mongo://<database>/<collection>, got %q", u.String())
	}

	idField := u.Query().Get("id_field")
	if idField == "" {
		idField = defaultMongoIDField
	}

	client, err := mongodocstore.Dial(ctx, serverURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	coll, err := mongodocstore.OpenCollection(client.Database(dbName).Collection(collName), idField, nil)
	if err != nil {
		_ = client.Disconnect(ctx)

		return nil, errors.Wrap(err, "failed to open mongo collection")
	}

	return &Collection{Collection: coll, client: client}, nil
}

// Ping checks the backing server. In-memory collections always succeed.
func (c *Collection) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	return errors.Wrap(c.client.Ping(ctx, readpref.Primary()), "failed to ping MongoDB")
}

// Close releases the collection and disconnects the client.
func (c *Collection) Close(ctx context.Context) error {
	err := c.Collection.Close()
	if c.client != nil {
		if dErr := c.client.Disconnect(ctx); dErr != nil && err == nil {
			err = dErr
		}
	}

	return errors.Wrap(err, "failed to close user collection")
}
