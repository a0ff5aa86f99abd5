package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-twin/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCustomerCollection implements CustomerCollection for MongoDB
type MongoCustomerCollection struct {
	Collection *mongo.Collection
}

// ListCustomers returns every customer
func (c *MongoCustomerCollection) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	customers := []models.Customer{}
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// MemoryCustomerCollection is a fixed in-process customer list.
type MemoryCustomerCollection []models.Customer

// ListCustomers returns a copy of the list
func (c MemoryCustomerCollection) ListCustomers(context.Context) ([]models.Customer, error) {
	return append([]models.Customer{}, c...), nil
}
