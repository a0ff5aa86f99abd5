package models

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUnitBSONRoundTrip(t *testing.T) {
	unit := Unit{
		ID:          primitive.NewObjectID(),
		Status:      string(StatusInUse),
		Battery:     87.25,
		Owner:       "Karlskrona",
		Speed:       14.431102,
		Coordinates: Coordinate{Latitude: 56.161224, Longitude: 15.586900},
		CurrentTrip: &Trip{UserID: "u1", Distance: 1.5},
	}
	data, err := bson.Marshal(unit)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out Unit
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !out.Coordinates.Equal(unit.Coordinates) {
		t.Errorf("coordinates = %+v, want %+v", out.Coordinates, unit.Coordinates)
	}
	if out.Speed != unit.Speed || out.Battery != unit.Battery {
		t.Errorf("speed/battery = %v/%v, want %v/%v", out.Speed, out.Battery, unit.Speed, unit.Battery)
	}
	if out.CurrentTrip == nil || out.CurrentTrip.UserID != "u1" {
		t.Errorf("current trip not preserved: %+v", out.CurrentTrip)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}

	_, err := ParseStatus("Needs charging")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
	_, err = ParseStatus("")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus for empty status, got %v", err)
	}
}

func TestCoordinate_Round6(t *testing.T) {
	c := Coordinate{Latitude: 56.1612244999, Longitude: -15.5869004}.Round6()
	if c.Latitude != 56.161224 || c.Longitude != -15.5869 {
		t.Errorf("Round6 = %+v", c)
	}
}
