package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	defer func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}()

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)
	defer store.Close()

	exerciseSlots(t, store)
}

func TestPingOrDisconnect_ReleasesClientOnFailure(t *testing.T) {
	ctx := context.Background()
	// Connect does not dial, so no server is needed here.
	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)

	err = pingOrDisconnect(ctx, client, func(context.Context) error {
		return errors.New("server selection timeout")
	})
	assert.ErrorContains(t, err, "failed to ping MongoDB")

	// a second disconnect only fails once the topology is already closed
	assert.ErrorIs(t, client.Disconnect(ctx), mongo.ErrClientDisconnected)
}

func TestPingOrDisconnect_KeepsClientOnSuccess(t *testing.T) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)

	require.NoError(t, pingOrDisconnect(ctx, client, func(context.Context) error { return nil }))
	assert.NoError(t, client.Disconnect(ctx))
}
