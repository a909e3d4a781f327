package reading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// wireReading mirrors the backend record. Pointers distinguish an absent
// field from a zero value.
type wireReading struct {
	ID    string `json:"id"`
	Local *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"local"`
	Umidade      float64  `json:"umidade"`
	Inclinacao   bool     `json:"inclinacao"`
	Vibracao     *bool    `json:"vibracao"`
	Deslocamento *bool    `json:"mpu_deslocamento_detectado"`
	ChuvaPassada *float64 `json:"chuva_passada"`
	Chuva24h     *float64 `json:"chuva_24h"`
	ChuvaFutura  *float64 `json:"chuva_futura"`
	Risco        string   `json:"risco"`
	Timestamp    string   `json:"timestamp"`
}

func (w wireReading) reading() Reading {
	r := Reading{
		ID:        w.ID,
		Location:  Location{Latitude: math.NaN(), Longitude: math.NaN()},
		Humidity:  w.Umidade,
		Tilt:      w.Inclinacao,
		Risk:      w.Risco,
		Timestamp: w.Timestamp,
	}
	// A missing coordinate stays NaN so the map reports it as invalid
	// instead of drawing null island.
	if w.Local != nil {
		if w.Local.Latitude != nil {
			r.Location.Latitude = *w.Local.Latitude
		}
		if w.Local.Longitude != nil {
			r.Location.Longitude = *w.Local.Longitude
		}
	}
	if w.Vibracao != nil {
		r.Vibration, r.HasVibration = *w.Vibracao, true
	}
	if w.Deslocamento != nil {
		r.Displacement, r.HasDisplacement = *w.Deslocamento, true
	}
	if w.ChuvaPassada != nil {
		r.RainPast, r.HasRainPast = *w.ChuvaPassada, true
	}
	if w.Chuva24h != nil {
		r.Rain24h, r.HasRain24h = *w.Chuva24h, true
	}
	if w.ChuvaFutura != nil {
		r.RainFuture, r.HasRainFuture = *w.ChuvaFutura, true
	}
	return r
}

// Decode parses one backend record.
func Decode(data []byte) (Reading, error) {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return Reading{}, err
	}
	if w.ID == "" {
		return Reading{}, fmt.Errorf("reading without id")
	}
	return w.reading(), nil
}

// DecodeList parses the JSON array served by /api/sensores-json. Order is
// preserved. Elements that fail to decode are skipped and counted; only a
// payload that is not an array is an error.
func DecodeList(data []byte) ([]Reading, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode reading list: %w", err)
	}

	readings := make([]Reading, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		r, err := Decode(item)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, r)
	}
	return readings, skipped, nil
}

// DecodeLines parses newline-delimited records, the format the backend
// appends to its db.json. Blank and malformed lines are skipped.
func DecodeLines(data []byte) ([]Reading, int) {
	var readings []Reading
	skipped := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		r, err := Decode(line)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, r)
	}
	return readings, skipped
}
