package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-twin/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoUnitCollection implements UnitCollection for MongoDB.
type MongoUnitCollection struct {
	Collection *mongo.Collection
}

func (c *MongoUnitCollection) objectID(id string) (primitive.ObjectID, error) {
	if c.Collection == nil {
		return primitive.NilObjectID, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid unit ID: %w", err)
	}
	return objectID, nil
}

// FindUnitByID finds a unit by its ID.
func (c *MongoUnitCollection) FindUnitByID(ctx context.Context, id string) (*models.Unit, error) {
	objectID, err := c.objectID(id)
	if err != nil {
		return nil, err
	}

	var unit models.Unit
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&unit)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// InsertUnit inserts a unit record and returns its id.
func (c *MongoUnitCollection) InsertUnit(ctx context.Context, unit models.Unit) (string, error) {
	if c.Collection == nil {
		return "", fmt.Errorf("mongo collection is nil")
	}
	if unit.ID.IsZero() {
		unit.ID = primitive.NewObjectID()
	}
	if unit.Log == nil {
		unit.Log = []models.Trip{}
	}
	if _, err := c.Collection.InsertOne(ctx, unit); err != nil {
		return "", err
	}
	return unit.ID.Hex(), nil
}

// updateOne applies update to exactly one unit.
func (c *MongoUnitCollection) updateOne(ctx context.Context, id string, update bson.M) error {
	objectID, err := c.objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount != 1 {
		return ErrUnitNotFound
	}
	return nil
}

// UpdateTelemetry sets coordinates, speed and battery of a unit.
func (c *MongoUnitCollection) UpdateTelemetry(ctx context.Context, id string, coordinates models.Coordinate, speed, battery float64) error {
	return c.updateOne(ctx, id, bson.M{"$set": bson.M{
		"coordinates": coordinates,
		"speed":       speed,
		"battery":     battery,
	}})
}

// UpdateStatus sets the status of a unit.
func (c *MongoUnitCollection) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return c.updateOne(ctx, id, bson.M{"$set": bson.M{"status": string(status)}})
}

// UpdateTripProgress sets the distance of the unit's current trip.
func (c *MongoUnitCollection) UpdateTripProgress(ctx context.Context, id string, distance float64) error {
	return c.updateOne(ctx, id, bson.M{"$set": bson.M{"currentTrip.distance": distance}})
}

// AppendLogEntry pushes a closed trip onto the unit's log.
func (c *MongoUnitCollection) AppendLogEntry(ctx context.Context, id string, entry models.Trip) error {
	return c.updateOne(ctx, id, bson.M{"$push": bson.M{"log": entry}})
}

func (c *MongoUnitCollection) findUnits(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Unit, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	units := []models.Unit{}
	if err := cursor.All(ctx, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// ListUnits returns every unit record.
func (c *MongoUnitCollection) ListUnits(ctx context.Context) ([]models.Unit, error) {
	return c.findUnits(ctx, bson.M{})
}

// ListUnitsByOwnerAndStatus returns the units of one owner in one status.
func (c *MongoUnitCollection) ListUnitsByOwnerAndStatus(ctx context.Context, owner string, status models.Status) ([]models.Unit, error) {
	return c.findUnits(ctx, bson.M{"owner": owner, "status": string(status)})
}

// ListUnitIDs returns the hex ids of every unit record.
func (c *MongoUnitCollection) ListUnitIDs(ctx context.Context) ([]string, error) {
	units, err := c.findUnits(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID.Hex())
	}
	return ids, nil
}
