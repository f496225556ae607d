package store

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Connect opens and verifies a client connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to mongodb")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to ping mongodb")
	}

	return client, nil
}
