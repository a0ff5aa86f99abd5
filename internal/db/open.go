package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/config"
)

// Stores bundles the collections a process needs and how to release them.
type Stores struct {
	Units     UnitCollection
	Customers CustomerCollection
	Close     func(ctx context.Context) error
}

// Open selects the backend named by cfg.Backend. The memory backend keeps
// everything in process and has no customers.
func Open(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "memory":
		log.Warn("Using in-memory store, nothing is persisted")
		return &Stores{
			Units:     NewMemoryUnitCollection(),
			Customers: MemoryCustomerCollection{},
			Close:     func(context.Context) error { return nil },
		}, nil
	case "", "mongo":
		client, err := ConnectMongo(ctx, cfg.URI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.Database)
		log.WithFields(log.Fields{
			"database":   cfg.Database,
			"collection": cfg.Collection,
		}).Info("Connected to MongoDB")
		return &Stores{
			Units:     &MongoUnitCollection{Collection: database.Collection(cfg.Collection)},
			Customers: &MongoCustomerCollection{Collection: database.Collection(cfg.CustomerCollection)},
			Close:     client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
