package models

import "math"

// Coordinate represents a geographical position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Equal compares both fields exactly.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

// Round6 rounds both fields to 6 decimal digits.
func (c Coordinate) Round6() Coordinate {
	return Coordinate{Latitude: round6(c.Latitude), Longitude: round6(c.Longitude)}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
