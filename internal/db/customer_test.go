package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/models"
)

func TestMongoCustomerCollection_NilCollection(t *testing.T) {
	coll := &MongoCustomerCollection{}
	_, err := coll.ListCustomers(context.Background())
	assert.Error(t, err)
}

func TestMongoCustomerCollection_ListCustomers(t *testing.T) {
	client, err := ConnectMongo(context.Background(), mongoURIForTest(t))
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	collection := client.Database("test_fleet_twin").Collection("users")
	collection.Drop(context.Background())

	_, err = collection.InsertMany(context.Background(), []interface{}{
		models.Customer{Name: "Rich", Email: "rich@example.com", Balance: 500},
		models.Customer{Name: "Broke", Email: "broke@example.com", Balance: 0},
	})
	require.NoError(t, err)

	customers, err := (&MongoCustomerCollection{Collection: collection}).ListCustomers(context.Background())
	assert.NoError(t, err)
	assert.Len(t, customers, 2)
}
