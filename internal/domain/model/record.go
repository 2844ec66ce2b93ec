// Package model contains domain models passed between layers.
package model

import "time"

// RawRecord is one entry of the cyclist dataset as served upstream.
// Field names mirror the JSON document.
type RawRecord struct {
	Time        string `json:"Time"`    // "M:SS" or "MM:SS"
	Place       int    `json:"Place"`   // finishing place, informational
	Seconds     int    `json:"Seconds"` // upstream copy of Time; never trusted
	Name        string `json:"Name"`
	Year        int    `json:"Year"`
	Nationality string `json:"Nationality"`
	Doping      string `json:"Doping"` // empty when there is no allegation
	URL         string `json:"URL"`
}

// NormalizedRecord is the typed form of a RawRecord.
type NormalizedRecord struct {
	Index       int       // position of the source RawRecord
	Year        time.Time // Jan 1 00:00 UTC of the race year
	TimeSeconds int       // minutes*60 + seconds
	Doping      string
}

// HasDoping reports whether the record carries a doping allegation.
func (r NormalizedRecord) HasDoping() bool { return r.Doping != "" }

// Point is a record projected into plot coordinates.
type Point struct {
	Index   int       `json:"index"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Doping  bool      `json:"doping"`
	Tooltip string    `json:"tooltip"`
	Record  RawRecord `json:"record"`
}
