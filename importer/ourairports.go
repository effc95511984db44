// importer/ourairports.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navlist"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

// The OurAirports (https://ourairports.com/data/) files that can be
// imported.
const (
	OurAirportsAirports    = "airports.csv"
	OurAirportsRunways     = "runways.csv"
	OurAirportsNavaids     = "navaids.csv"
	OurAirportsFrequencies = "airport-frequencies.csv"
)

// mungeCSV breaks each line of the CSV file into the requested fields
// and calls the provided callback function for each one. The callback
// gets the 1-based line number for error reporting.
func mungeCSV(r io.Reader, fields []string, e *util.ErrorLogger, callback func(line int, s []string)) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	// Find the index of each field the caller requested
	var fieldIndices []int
	if header, err := cr.Read(); err != nil {
		e.ErrorString("error parsing CSV header: %v", err)
		return
	} else {
		for _, f := range fields {
			idx := -1
			for hi, h := range header {
				if f == strings.TrimSpace(h) {
					idx = hi
					break
				}
			}
			if idx == -1 {
				e.ErrorString("%s: did not find requested field header", f)
				return
			}
			fieldIndices = append(fieldIndices, idx)
		}
	}

	strs := make([]string, len(fieldIndices))
	for line := 2; ; line++ {
		if record, err := cr.Read(); err == io.EOF {
			return
		} else if err != nil {
			e.ErrorString("line %d: %v", line, err)
			return
		} else {
			for i, fi := range fieldIndices {
				strs[i] = strings.TrimSpace(record[fi])
			}
			callback(line, strs)
		}
	}
}

// csvParser converts CSV fields to numbers, remembering the first error.
type csvParser struct {
	err error
}

func (p *csvParser) float(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *csvParser) geod(lat, lon, elevFt string) math.Geod {
	return math.GeodFromDegreesFt(p.float(lat), p.float(lon), p.float(elevFt))
}

func (p *csvParser) report(e *util.ErrorLogger, line int) bool {
	if p.err != nil {
		e.ErrorString("line %d: %v", line, p.err)
		p.err = nil
		return true
	}
	return false
}

func ParseOurAirportsAirports(r io.Reader, e *util.ErrorLogger) *Dataset {
	d := NewDataset()
	var p csvParser
	mungeCSV(r, []string{"ident", "type", "name", "latitude_deg", "longitude_deg", "elevation_ft"}, e,
		func(line int, s []string) {
			var t positioned.Type
			switch s[1] {
			case "large_airport", "medium_airport", "small_airport":
				t = positioned.TypeAirport
			case "heliport":
				t = positioned.TypeHeliport
			case "seaplane_base":
				t = positioned.TypeSeaport
			default: // closed, balloonport
				return
			}

			pos := p.geod(s[3], s[4], s[5])
			if p.report(e, line) {
				return
			}
			ap := d.Airport(s[0])
			ap.Type, ap.Name, ap.Pos = t, s[2], pos
		})
	return d
}

func surfaceFromString(s string) positioned.Surface {
	s = strings.ToUpper(s)
	switch {
	case strings.HasPrefix(s, "ASP") || strings.HasPrefix(s, "BIT") || strings.HasPrefix(s, "PEM"):
		return positioned.SurfaceAsphalt
	case strings.HasPrefix(s, "CON"):
		return positioned.SurfaceConcrete
	case strings.HasPrefix(s, "TURF") || strings.HasPrefix(s, "GRASS") || strings.HasPrefix(s, "GRS"):
		return positioned.SurfaceTurf
	case strings.HasPrefix(s, "DIRT") || strings.HasPrefix(s, "CLAY") || strings.HasPrefix(s, "SAND"):
		return positioned.SurfaceDirt
	case strings.HasPrefix(s, "GRAV") || strings.HasPrefix(s, "GRVL"):
		return positioned.SurfaceGravel
	case strings.HasPrefix(s, "WAT"):
		return positioned.SurfaceWater
	case strings.HasPrefix(s, "SNOW") || strings.HasPrefix(s, "ICE"):
		return positioned.SurfaceSnow
	default:
		return positioned.SurfaceUnknown
	}
}

func ParseOurAirportsRunways(r io.Reader, e *util.ErrorLogger) *Dataset {
	d := NewDataset()
	var p csvParser
	mungeCSV(r, []string{"airport_ident", "length_ft", "width_ft", "surface", "closed",
		"le_ident", "le_latitude_deg", "le_longitude_deg", "le_elevation_ft", "le_heading_degT", "le_displaced_threshold_ft",
		"he_ident", "he_latitude_deg", "he_longitude_deg", "he_elevation_ft", "he_heading_degT", "he_displaced_threshold_ft"}, e,
		func(line int, s []string) {
			if s[4] == "1" || s[6] == "" || s[7] == "" {
				// Closed or no position
				return
			}

			length, width := math.FeetToMeters(p.float(s[1])), math.FeetToMeters(p.float(s[2]))
			surface := surfaceFromString(s[3])
			le := p.geod(s[6], s[7], s[8])
			leHdg, leDispl := p.float(s[9]), math.FeetToMeters(p.float(s[10]))
			if p.report(e, line) {
				return
			}

			ap := d.Airport(s[0])
			if strings.HasPrefix(s[5], "H") {
				ap.Helipads = append(ap.Helipads, Runway{Ident: s[5], Begin: le, HeadingDeg: leHdg,
					LengthM: length, WidthM: width, Surface: surface})
				return
			}

			if s[12] != "" && s[13] != "" {
				he := p.geod(s[12], s[13], s[14])
				heHdg, heDispl := p.float(s[15]), math.FeetToMeters(p.float(s[16]))
				if p.report(e, line) {
					return
				}
				if s[9] == "" {
					leHdg = math.CourseDeg(le, he)
				}
				if s[15] == "" {
					heHdg = math.CourseDeg(he, le)
				}
				if length == 0 {
					length = math.DistanceM(le, he)
				}
				ap.Runways = append(ap.Runways, Runway{Ident: normalizeRunwayIdent(s[11]), Begin: he, HeadingDeg: heHdg,
					LengthM: length, WidthM: width, DisplacedM: heDispl, Surface: surface})
			} else if s[9] == "" {
				e.ErrorString("line %d: %s runway %s: no heading", line, s[0], s[5])
				return
			}

			ap.Runways = append(ap.Runways, Runway{Ident: normalizeRunwayIdent(s[5]), Begin: le, HeadingDeg: leHdg,
				LengthM: length, WidthM: width, DisplacedM: leDispl, Surface: surface})
		})
	return d
}

func ParseOurAirportsNavaids(r io.Reader, e *util.ErrorLogger) *Dataset {
	d := NewDataset()
	var p csvParser
	mungeCSV(r, []string{"ident", "name", "type", "frequency_khz", "latitude_deg", "longitude_deg", "elevation_ft",
		"dme_channel", "dme_latitude_deg", "dme_longitude_deg", "dme_elevation_ft"}, e,
		func(line int, s []string) {
			nav := Navaid{Ident: s[0], Name: s[1], Pos: p.geod(s[4], s[5], s[6])}
			khz := p.float(s[3])
			if p.report(e, line) {
				return
			}

			// Frequencies are stored in hundredths of MHz, or of kHz for
			// NDBs.
			switch s[2] {
			case "NDB", "NDB-DME":
				nav.Type = positioned.TypeNDB
				nav.Freq = positioned.Frequency(math.Round(khz * 100))
				nav.Name += " NDB"
			case "VOR", "VOR-DME", "VORTAC":
				nav.Type = positioned.TypeVOR
				nav.Freq = positioned.Frequency(math.Round(khz / 10))
				nav.Name += " " + s[2]
			case "DME":
				nav.Type = positioned.TypeDME
				nav.Freq = positioned.Frequency(math.Round(khz / 10))
			case "TACAN":
				nav.Type = positioned.TypeTACAN
				if f, err := navlist.ChannelFrequency(strings.TrimLeft(s[7], "0")); err == nil {
					nav.Freq = f
				}
				nav.Name += " TACAN"
			default:
				e.ErrorString("line %d: %s: unknown navaid type %q", line, s[0], s[2])
				return
			}

			if s[8] != "" && s[9] != "" && (s[2] == "VOR-DME" || s[2] == "VORTAC") {
				dme := p.geod(s[8], s[9], s[10])
				if p.report(e, line) {
					return
				}
				nav.DME = &dme
				nav.DMEType = util.Select(s[2] == "VORTAC", positioned.TypeTACAN, positioned.TypeDME)
			}
			d.Navaids = append(d.Navaids, nav)
		})
	return d
}

func commTypeFromString(s string) (positioned.Type, bool) {
	switch strings.ToUpper(s) {
	case "GND", "GROUND":
		return positioned.TypeFreqGround, true
	case "TWR", "TOWER":
		return positioned.TypeFreqTower, true
	case "ATIS", "D-ATIS":
		return positioned.TypeFreqATIS, true
	case "AWOS", "ASOS", "AWIB":
		return positioned.TypeFreqAWOS, true
	case "APP", "DEP", "A/D", "APP/DEP", "TRACON":
		return positioned.TypeFreqAppDep, true
	case "CNTR", "CTR", "CENTER":
		return positioned.TypeFreqEnroute, true
	case "CLD", "CLNC", "DEL", "CD":
		return positioned.TypeFreqClearance, true
	case "UNIC", "UNICOM", "CTAF", "MULTICOM":
		return positioned.TypeFreqUnicom, true
	default:
		return positioned.TypeInvalid, false
	}
}

func ParseOurAirportsFrequencies(r io.Reader, e *util.ErrorLogger) *Dataset {
	d := NewDataset()
	var p csvParser
	mungeCSV(r, []string{"airport_ident", "type", "description", "frequency_mhz"}, e,
		func(line int, s []string) {
			t, ok := commTypeFromString(s[1])
			if !ok {
				// There are lots of oddball ones (e.g., "RDO", "MISC");
				// they're not worth warning about.
				return
			}
			mhz := p.float(s[3])
			if p.report(e, line) {
				return
			}

			ap := d.Airport(s[0])
			ap.Comms = append(ap.Comms, Comm{
				Type:    t,
				Ident:   s[0],
				Name:    util.Select(s[2] != "", s[2], s[0]+" "+strings.ToUpper(s[1])),
				FreqKHz: int(math.Round(mhz * 1000)),
			})
		})
	return d
}

// parserForFile returns the parser to use for the given file, based on
// its name; files with unrecognized names are assumed to be CIFP.
func parserForFile(name string) (func(io.Reader, *util.ErrorLogger) *Dataset, error) {
	switch name {
	case OurAirportsAirports:
		return ParseOurAirportsAirports, nil
	case OurAirportsRunways:
		return ParseOurAirportsRunways, nil
	case OurAirportsNavaids:
		return ParseOurAirportsNavaids, nil
	case OurAirportsFrequencies:
		return ParseOurAirportsFrequencies, nil
	}
	if strings.HasSuffix(name, ".csv") {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownFormat)
	}
	return ParseARINC424, nil
}
