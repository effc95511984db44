// math/geod.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	gomath "math"
)

const (
	MetersPerNM   = 1852
	FeetPerMeter  = 3.2808399
	NMPerLatitude = 60

	// EarthRadiusM is the mean radius used for great-circle courses and
	// offsets.
	EarthRadiusM = 6371008.8

	// WGS-84 ellipsoid
	wgs84A  = 6378137.0
	wgs84F  = 1 / 298.257223563
	wgs84B  = wgs84A * (1 - wgs84F)
	wgs84E2 = wgs84F * (2 - wgs84F)
)

func NMToMeters(nm float64) float64   { return nm * MetersPerNM }
func MetersToNM(m float64) float64    { return m / MetersPerNM }
func FeetToMeters(ft float64) float64 { return ft / FeetPerMeter }
func MetersToFeet(m float64) float64  { return m * FeetPerMeter }

// Geod is a geodetic position: latitude and longitude in degrees and
// elevation in meters above the WGS-84 ellipsoid.
type Geod struct {
	Lat   float64 `json:"lat" msgpack:"lat"`
	Lon   float64 `json:"lon" msgpack:"lon"`
	ElevM float64 `json:"elev_m" msgpack:"elev"`
}

func GeodFromDegreesFt(lat, lon, elevFt float64) Geod {
	return Geod{Lat: lat, Lon: lon, ElevM: FeetToMeters(elevFt)}
}

func (g Geod) ElevationFt() float64 {
	return MetersToFeet(g.ElevM)
}

// Valid reports whether neither coordinate is NaN.
func (g Geod) Valid() bool {
	return !gomath.IsNaN(g.Lat) && !gomath.IsNaN(g.Lon)
}

func (g Geod) String() string {
	return fmt.Sprintf("%.6f,%.6f", g.Lat, g.Lon)
}

// Vec3 is a point in earth-centered earth-fixed cartesian space, in
// meters.
type Vec3 [3]float64

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Dist2 returns the squared distance between a and b.
func Dist2(a, b Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// CartFromGeod converts a geodetic position to ECEF cartesian coordinates.
func CartFromGeod(g Geod) Vec3 {
	lat, lon := Radians(g.Lat), Radians(g.Lon)
	slat, clat := gomath.Sincos(lat)
	slon, clon := gomath.Sincos(lon)
	n := wgs84A / gomath.Sqrt(1-wgs84E2*slat*slat)
	return Vec3{
		(n + g.ElevM) * clat * clon,
		(n + g.ElevM) * clat * slon,
		(n*(1-wgs84E2) + g.ElevM) * slat,
	}
}

// CourseDeg returns the initial great-circle course from a to b in
// degrees true, in [0,360).
func CourseDeg(a, b Geod) float64 {
	lat1, lat2 := Radians(a.Lat), Radians(b.Lat)
	dlon := Radians(b.Lon - a.Lon)
	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	return NormalizeHeading(Degrees(gomath.Atan2(y, x)))
}

// DistanceM returns the great-circle distance between a and b in meters.
func DistanceM(a, b Geod) float64 {
	lat1, lat2 := Radians(a.Lat), Radians(b.Lat)
	dlat := lat2 - lat1
	dlon := Radians(b.Lon - a.Lon)
	h := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	return 2 * EarthRadiusM * gomath.Asin(gomath.Min(1, gomath.Sqrt(h)))
}

// DistanceNM returns the great-circle distance between a and b in
// nautical miles.
func DistanceNM(a, b Geod) float64 {
	return MetersToNM(DistanceM(a, b))
}

// Offset returns the point reached by following the great circle that
// leaves g with the given course for distM meters. The elevation of g is
// preserved.
func Offset(g Geod, courseDeg, distM float64) Geod {
	lat1, lon1 := Radians(g.Lat), Radians(g.Lon)
	crs := Radians(courseDeg)
	d := distM / EarthRadiusM

	lat2 := gomath.Asin(gomath.Sin(lat1)*gomath.Cos(d) + gomath.Cos(lat1)*gomath.Sin(d)*gomath.Cos(crs))
	lon2 := lon1 + gomath.Atan2(gomath.Sin(crs)*gomath.Sin(d)*gomath.Cos(lat1),
		gomath.Cos(d)-gomath.Sin(lat1)*gomath.Sin(lat2))

	lon := Degrees(lon2)
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return Geod{Lat: Degrees(lat2), Lon: lon, ElevM: g.ElevM}
}
