package models

// GeoPoint хранит координаты в градусах.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
