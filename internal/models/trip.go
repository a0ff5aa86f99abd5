package models

import "time"

// Trip represents one rental of a unit. The rental system opens it in the
// unit's currentTrip field; the unit closes it into its log.
type Trip struct {
	ID            string      `bson:"id,omitempty" json:"id,omitempty"`
	UserID        string      `bson:"userId,omitempty" json:"user_id,omitempty"`
	StartTime     time.Time   `bson:"startTime,omitempty" json:"start_time,omitempty"`
	StartPosition *Coordinate `bson:"startPosition,omitempty" json:"start_position,omitempty"`
	EndPosition   *Coordinate `bson:"endPosition,omitempty" json:"end_position,omitempty"`
	EndTime       time.Time   `bson:"endTime,omitempty" json:"end_time,omitempty"`
	Distance      float64     `bson:"distance" json:"distance"` // in kilometers
}
