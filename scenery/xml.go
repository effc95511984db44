// scenery/xml.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenery

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mmp/navdb/math"
)

// Threshold gives the location of one end of a runway. Pos has zero
// elevation; the airport's elevation is used in its place.
type Threshold struct {
	Runway     string
	Pos        math.Geod
	HeadingDeg float64
	DisplacedM float64
	StopwayM   float64
}

// TowerOverride gives the tower position; ElevM in Pos is the height
// above the field.
type TowerOverride struct {
	Pos math.Geod
}

type ILSOverride struct {
	Runway     string
	NavIdent   string
	Pos        math.Geod
	HeadingDeg float64
}

type xmlThreshold struct {
	Lon        float64 `xml:"lon"`
	Lat        float64 `xml:"lat"`
	Runway     string  `xml:"rwy"`
	HeadingDeg float64 `xml:"hdg-deg"`
	DisplacedM float64 `xml:"displ-m"`
	StopwayM   float64 `xml:"stopw-m"`
}

type xmlThresholdFile struct {
	XMLName xml.Name `xml:"PropertyList"`
	Runways []struct {
		Thresholds []xmlThreshold `xml:"threshold"`
	} `xml:"runway"`
}

type xmlTowerFile struct {
	XMLName xml.Name `xml:"PropertyList"`
	Tower   *struct {
		Twr *struct {
			Lon   float64 `xml:"lon"`
			Lat   float64 `xml:"lat"`
			ElevM float64 `xml:"elev-m"`
		} `xml:"twr"`
	} `xml:"tower"`
}

type xmlILSFile struct {
	XMLName xml.Name `xml:"PropertyList"`
	Runways []struct {
		ILS []struct {
			Lon        float64 `xml:"lon"`
			Lat        float64 `xml:"lat"`
			ElevM      float64 `xml:"elev-m"`
			Runway     string  `xml:"rwy"`
			NavIdent   string  `xml:"nav-id"`
			HeadingDeg float64 `xml:"hdg-deg"`
		} `xml:"ils"`
	} `xml:"runway"`
}

// ParseThresholds reads a threshold file. Each runway must give at least
// both of its thresholds; all of them are returned, in file order.
func ParseThresholds(r io.Reader) ([]Threshold, error) {
	var f xmlThresholdFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var th []Threshold
	for i, rwy := range f.Runways {
		if len(rwy.Thresholds) < 2 {
			return nil, fmt.Errorf("%w: runway %d: expected 2 thresholds, found %d", ErrMalformed,
				i, len(rwy.Thresholds))
		}
		for _, t := range rwy.Thresholds {
			th = append(th, Threshold{
				Runway:     strings.TrimSpace(t.Runway),
				Pos:        math.Geod{Lat: t.Lat, Lon: t.Lon},
				HeadingDeg: t.HeadingDeg,
				DisplacedM: t.DisplacedM,
				StopwayM:   t.StopwayM,
			})
		}
	}
	return th, nil
}

func ParseTower(r io.Reader) (TowerOverride, error) {
	var f xmlTowerFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return TowerOverride{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Tower == nil || f.Tower.Twr == nil {
		return TowerOverride{}, fmt.Errorf("%w: no tower/twr node", ErrMalformed)
	}
	t := f.Tower.Twr
	return TowerOverride{Pos: math.Geod{Lat: t.Lat, Lon: t.Lon, ElevM: t.ElevM}}, nil
}

func ParseILS(r io.Reader) ([]ILSOverride, error) {
	var f xmlILSFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var ils []ILSOverride
	for _, rwy := range f.Runways {
		for _, i := range rwy.ILS {
			ils = append(ils, ILSOverride{
				Runway:     strings.TrimSpace(i.Runway),
				NavIdent:   strings.TrimSpace(i.NavIdent),
				Pos:        math.Geod{Lat: i.Lat, Lon: i.Lon, ElevM: i.ElevM},
				HeadingDeg: i.HeadingDeg,
			})
		}
	}
	return ils, nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var t T
		return t, err
	}
	defer f.Close()

	t, err := parse(f)
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ReadThresholds(path string) ([]Threshold, error) {
	return parseFile(path, ParseThresholds)
}

func ReadTower(path string) (TowerOverride, error) {
	return parseFile(path, ParseTower)
}

func ReadILS(path string) ([]ILSOverride, error) {
	return parseFile(path, ParseILS)
}
