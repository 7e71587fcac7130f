package models

import "time"

// Recall is a manufacturer recall campaign affecting a vehicle.
type Recall struct {
	Number      string     `bson:"number" json:"number"`
	Date        *time.Time `bson:"date,omitempty" json:"date,omitempty"`
	Make        string     `bson:"make" json:"make"`
	Model       string     `bson:"model" json:"model"`
	Years       string     `bson:"years,omitempty" json:"years,omitempty"`
	Description string     `bson:"description" json:"description"`
	Source      string     `bson:"source" json:"source"`
}
