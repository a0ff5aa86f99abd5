package models

import (
	"time"
)

// Telemetry is the per-tick physical state a unit writes back.
type Telemetry struct {
	UnitID       string     `bson:"unit_id" json:"unit_id"`
	Timestamp    time.Time  `bson:"timestamp" json:"timestamp"`
	Coordinates  Coordinate `bson:"coordinates" json:"coordinates"`
	Speed        float64    `bson:"speed" json:"speed"` // km/h
	Battery      float64    `bson:"battery" json:"battery"`
	Status       Status     `bson:"status" json:"status"`
	TripDistance *float64   `bson:"trip_distance,omitempty" json:"trip_distance,omitempty"`
}

// FleetSnapshot counts live units per status.
type FleetSnapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"by_status"`
}
