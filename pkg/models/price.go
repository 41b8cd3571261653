package models

import "time"

// --- Market data ---

// PricePoint is a single daily closing price observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
