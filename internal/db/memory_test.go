package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-twin/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mongoURIForTest(t *testing.T) string {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	return uri
}

func TestMemoryUnitCollection_TelemetryRoundTrip(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryUnitCollection()

	id, err := coll.InsertUnit(ctx, models.Unit{Status: string(models.StatusAvailable), Battery: 100})
	require.NoError(t, err)

	pos := models.Coordinate{Latitude: 56.161224, Longitude: 15.5869}
	require.NoError(t, coll.UpdateTelemetry(ctx, id, pos, 21.3, 77.7))

	unit, err := coll.FindUnitByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, pos, unit.Coordinates)
	assert.Equal(t, 21.3, unit.Speed)
	assert.Equal(t, 77.7, unit.Battery)
}

func TestMemoryUnitCollection_NotFound(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryUnitCollection()
	missing := primitive.NewObjectID().Hex()

	_, err := coll.FindUnitByID(ctx, missing)
	assert.True(t, errors.Is(err, ErrUnitNotFound))
	assert.True(t, errors.Is(coll.UpdateStatus(ctx, missing, models.StatusOff), ErrUnitNotFound))
	assert.True(t, errors.Is(coll.UpdateTripProgress(ctx, missing, 1), ErrUnitNotFound))
	assert.True(t, errors.Is(coll.AppendLogEntry(ctx, missing, models.Trip{}), ErrUnitNotFound))
}

func TestMemoryUnitCollection_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryUnitCollection()
	id, _ := coll.InsertUnit(ctx, models.Unit{CurrentTrip: &models.Trip{UserID: "u1"}})

	unit, _ := coll.FindUnitByID(ctx, id)
	unit.CurrentTrip.UserID = "changed"
	unit.Log = append(unit.Log, models.Trip{})

	again, _ := coll.FindUnitByID(ctx, id)
	assert.Equal(t, "u1", again.CurrentTrip.UserID)
	assert.Empty(t, again.Log)
}

func TestMemoryUnitCollection_Listing(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryUnitCollection()

	a, _ := coll.InsertUnit(ctx, models.Unit{Owner: "Karlskrona", Status: string(models.StatusInUse)})
	b, _ := coll.InsertUnit(ctx, models.Unit{Owner: "Karlskrona", Status: string(models.StatusAvailable)})
	c, _ := coll.InsertUnit(ctx, models.Unit{Owner: "Lund", Status: string(models.StatusInUse)})

	ids, err := coll.ListUnitIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b, c}, ids)

	inUse, err := coll.ListUnitsByOwnerAndStatus(ctx, "Karlskrona", models.StatusInUse)
	require.NoError(t, err)
	require.Len(t, inUse, 1)
	assert.Equal(t, a, inUse[0].ID.Hex())

	coll.Delete(b)
	ids, _ = coll.ListUnitIDs(ctx)
	assert.ElementsMatch(t, []string{a, c}, ids)
}
