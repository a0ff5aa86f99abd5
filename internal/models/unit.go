package models

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownStatus is returned when a stored status is outside the known set.
var ErrUnknownStatus = errors.New("unknown unit status")

// Status is the lifecycle state of a unit as stored in the database.
type Status string

const (
	StatusOff         Status = "Off"
	StatusAvailable   Status = "Available"
	StatusInUse       Status = "In use"
	StatusUnavailable Status = "Unavailable"
	StatusCharging    Status = "Charging"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusOff, StatusAvailable, StatusInUse, StatusUnavailable, StatusCharging}

// ParseStatus converts a stored value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOff, StatusAvailable, StatusInUse, StatusUnavailable, StatusCharging:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Unit is the authoritative record of one rental vehicle.
type Unit struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Battery     float64            `bson:"battery" json:"battery"`
	Owner       string             `bson:"owner" json:"owner"`
	CurrentTrip *Trip              `bson:"currentTrip" json:"current_trip"`
	Log         []Trip             `bson:"log" json:"log"`
	Speed       float64            `bson:"speed" json:"speed"`
	Coordinates Coordinate         `bson:"coordinates" json:"coordinates"`
}

// State parses the stored status.
func (u *Unit) State() (Status, error) {
	return ParseStatus(u.Status)
}
