// Package reading defines the landslide sensor observation record consumed
// by the monitor, and its decoding from the backend JSON feed.
package reading

import (
	"strconv"
	"time"
)

// Location is a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Reading represents a single observation from a VITA sensor. Values are
// passed by copy and never modified after decoding.
//
// Fields that depend on the sensor model carry a Has* flag; a false flag
// means the source did not report the field at all.
type Reading struct {
	ID       string   // e.g. "VITA-01"
	Location Location // sensor position
	Humidity float64  // soil humidity in percent, not range checked
	Tilt     bool

	Vibration       bool // SW-420
	HasVibration    bool
	Displacement    bool // MPU6050
	HasDisplacement bool

	RainPast      float64 // accumulated rainfall over 48h in mm
	HasRainPast   bool
	Rain24h       float64 // accumulated rainfall over 24h in mm
	HasRain24h    bool
	RainFuture    float64 // forecast rainfall in mm
	HasRainFuture bool

	Risk      string // "ALTO", "MÉDIO", "BAIXO" or anything the backend invents
	Timestamp string // ISO-8601 as received
}

// Key returns the identity used to decide whether a map view can be kept:
// sensor ID plus full-precision coordinates.
func (r Reading) Key() string {
	return r.ID + "@" +
		strconv.FormatFloat(r.Location.Latitude, 'g', -1, 64) + "," +
		strconv.FormatFloat(r.Location.Longitude, 'g', -1, 64)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time parses the timestamp. Timestamps without a zone are taken as local
// time, which is what the sensors report.
func (r Reading) Time() (time.Time, bool) {
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, r.Timestamp, time.Local)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
