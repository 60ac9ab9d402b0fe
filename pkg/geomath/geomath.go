package geomath

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is the mean Earth radius used for all great-circle math
const EarthRadiusMeters = 6371000.0

// ErrOffsetMissing is returned when an agent has no configured frame offset
var ErrOffsetMissing = errors.New("frame offset missing")

// Vector3 is an (x, y, z) triple in a local or standard frame (NED metres)
type Vector3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Add returns the elementwise sum of v and o
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns the elementwise difference v - o
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Norm returns the euclidean length of v
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Scale multiplies every component by k
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// GeoPosition represents a geodetic position
type GeoPosition struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Altitude  float64 `yaml:"altitude" json:"altitude"`
}

// Point returns the position as an orb point (lon, lat)
func (g GeoPosition) Point() orb.Point {
	return orb.Point{g.Longitude, g.Latitude}
}

func (g GeoPosition) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.1fm)", g.Latitude, g.Longitude, g.Altitude)
}

// HaversineMeters returns the great-circle distance in meters between two points
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := degToRad(lat1)
	phi2 := degToRad(lat2)
	dPhi := degToRad(lat2 - lat1)
	dLambda := degToRad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance returns the ground distance between two positions. Altitude is ignored.
func Distance(a, b GeoPosition) float64 {
	return HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// ToStandardFrame translates a local position into the shared standard frame
func ToStandardFrame(local, offset Vector3) Vector3 {
	return local.Add(offset)
}

// ToLocalFrame translates a standard-frame position back into an agent's local frame.
// It is the exact inverse of ToStandardFrame for the same offset.
func ToLocalFrame(global, offset Vector3) Vector3 {
	return global.Sub(offset)
}

// Displace moves origin by a NED displacement in meters (x north, y east, z down)
// using a local flat-earth approximation.
func Displace(origin GeoPosition, ned Vector3) GeoPosition {
	dLat := ned.X / EarthRadiusMeters
	dLon := ned.Y / (EarthRadiusMeters * math.Cos(degToRad(origin.Latitude)))

	return GeoPosition{
		Latitude:  origin.Latitude + radToDeg(dLat),
		Longitude: origin.Longitude + radToDeg(dLon),
		Altitude:  origin.Altitude - ned.Z,
	}
}

// LatLonAltToECEF converts latitude, longitude, altitude to ECEF coordinates (WGS84)
func LatLonAltToECEF(p GeoPosition) (x, y, z float64) {
	a := 6378137.0           // semi-major axis
	f := 1.0 / 298.257223563 // flattening
	e2 := 2*f - f*f

	latRad := degToRad(p.Latitude)
	lonRad := degToRad(p.Longitude)

	sinLat := math.Sin(latRad)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)

	x = (n + p.Altitude) * math.Cos(latRad) * math.Cos(lonRad)
	y = (n + p.Altitude) * math.Cos(latRad) * math.Sin(lonRad)
	z = (n*(1-e2) + p.Altitude) * math.Sin(latRad)

	return x, y, z
}

// Bound returns the bounding box of a set of positions
func Bound(positions []GeoPosition) orb.Bound {
	mp := make(orb.MultiPoint, 0, len(positions))
	for _, p := range positions {
		mp = append(mp, p.Point())
	}
	return mp.Bound()
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
func radToDeg(r float64) float64 { return r * 180.0 / math.Pi }
