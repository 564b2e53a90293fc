package cli

import (
	"context"
	"fmt"

	"messaging-service/internal/config"
	"messaging-service/internal/db"
	"messaging-service/internal/repositories"
)

// stores bundles the repositories of the configured driver with its lifecycle.
type stores struct {
	messages     repositories.MessageRepository
	participants repositories.ParticipantRepository
	ping         func(context.Context) error
	close        func() error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		database, err := db.Connect(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			messages:     repositories.NewMessageRepo(database),
			participants: repositories.NewParticipantRepo(database),
			ping:         database.PingContext,
			close:        database.Close,
		}, nil
	case config.StoreMongo:
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &stores{
			messages:     repositories.NewMongoMessageRepo(database),
			participants: repositories.NewMongoParticipantRepo(database),
			ping:         func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:        func() error { return client.Disconnect(context.Background()) },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
