// importer/arinc424.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

// ARINC-424 records are 132 characters, not counting the line ending.
const ARINC424RecordLength = 132

func empty(s []byte) bool {
	return len(bytes.TrimSpace(s)) == 0
}

// field returns the trimmed string in the given columns (0-based,
// half-open).
func field(line []byte, start, end int) string {
	return strings.TrimSpace(string(line[start:end]))
}

// recordParser extracts numeric fields from a single record, remembering
// the first error encountered so that callers can check once at the end.
type recordParser struct {
	line []byte
	err  error
}

func (p *recordParser) int(start, end int) int {
	s := field(p.line, start, end)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("columns %d-%d: %w", start+1, end, err)
	}
	return v
}

func (p *recordParser) llDigits(d, m, s []byte) float64 {
	var v [3]int
	for i, b := range [][]byte{d, m, s} {
		var err error
		if v[i], err = strconv.Atoi(string(b)); err != nil && p.err == nil {
			p.err = fmt.Errorf("%s%s%s: %w", d, m, s, err)
		}
	}
	return float64(v[0]) + float64(v[1])/60 + float64(v[2])/100/3600
}

// latLong parses the 19-character latitude/longitude field that starts
// at the given column, e.g. "N37371194W122224824".
func (p *recordParser) latLong(start int) math.Geod {
	lat, long := p.line[start:start+9], p.line[start+9:start+19]
	if (lat[0] != 'N' && lat[0] != 'S') || (long[0] != 'E' && long[0] != 'W') {
		if p.err == nil {
			p.err = fmt.Errorf("%s%s: invalid latitude/longitude", lat, long)
		}
		return math.Geod{}
	}

	g := math.Geod{
		Lat: p.llDigits(lat[1:3], lat[3:5], lat[5:]),
		Lon: p.llDigits(long[1:4], long[4:6], long[6:]),
	}
	if lat[0] == 'S' {
		g.Lat = -g.Lat
	}
	if long[0] == 'W' {
		g.Lon = -g.Lon
	}
	return g
}

// ssaRecord is the subset of a SID, STAR, or approach record that's
// kept.
type ssaRecord struct {
	icao       string
	id         string
	routeType  byte
	transition string
	fix        string
}

func parseSSA(line []byte) ssaRecord {
	return ssaRecord{
		icao:       field(line, 6, 10),
		id:         field(line, 13, 19),
		routeType:  line[19],
		transition: field(line, 20, 25),
		fix:        field(line, 29, 34),
	}
}

// ParseARINC424 parses the FAA CIFP (ARINC-424) navigation data from the
// provided reader. Records that can't be parsed are reported to e and
// skipped.
func ParseARINC424(r io.Reader, e *util.ErrorLogger) *Dataset {
	d := NewDataset()

	br := bufio.NewReader(r)
	var lines [][]byte
	lineno := 0

	getline := func() []byte {
		if n := len(lines); n > 0 {
			l := lines[n-1]
			lines = lines[:n-1]
			return l
		}

		for {
			b, err := br.ReadBytes('\n')
			if len(b) == 0 && err != nil {
				if err != io.EOF {
					e.Error(err)
				}
				return nil
			}
			lineno++

			b = bytes.TrimRight(b, "\r\n")
			if len(b) < ARINC424RecordLength {
				if len(b) > 0 {
					e.ErrorString("line %d: unexpected record length %d", lineno, len(b))
				}
				continue
			}
			return b
		}
	}
	ungetline := func(line []byte) {
		lines = append(lines, line)
	}

	// Returns the records for all lines starting at the given one that
	// are airport records for the same procedure.
	var recs []ssaRecord
	matchingSSARecs := func(line []byte) []ssaRecord {
		id := field(line, 13, 19)
		icao, subsec := field(line, 6, 10), line[12]

		recs = recs[:0]
		for {
			recs = append(recs, parseSSA(line))
			line = getline()
			if line == nil {
				break
			}
			if field(line, 13, 19) != id || field(line, 6, 10) != icao || line[0] != 'S' ||
				line[4] != 'P' || line[12] != subsec {
				ungetline(line)
				break
			}
		}
		return recs
	}

	for {
		line := getline()
		if line == nil {
			break
		}

		if line[0] != 'S' { // not a standard record
			continue
		}

		p := &recordParser{line: line}
		section := line[4]
		switch section {
		case 'D':
			if cont := line[21]; cont != '0' && cont != '1' {
				continue
			}
			switch line[5] {
			case ' ':
				parseVHFNavaid(p, d)
			case 'B':
				parseNDB(p, d)
			}

		case 'E':
			if line[5] == 'A' { // enroute waypoint
				parseFix(p, d)
			}

		case 'H':
			icao := field(line, 6, 10)
			switch line[12] {
			case 'A': // heliport
				if cont := line[21]; cont != '0' && cont != '1' {
					continue
				}
				parseAirport(p, d.Airport(icao), positioned.TypeHeliport)

			case 'C': // terminal waypoint
				parseFix(p, d)
			}

		case 'P':
			icao := field(line, 6, 10)
			switch line[12] {
			case 'A': // primary airport record
				if cont := line[21]; cont != '0' && cont != '1' {
					continue
				}
				parseAirport(p, d.Airport(icao), positioned.TypeAirport)

			case 'C': // terminal waypoint
				parseFix(p, d)

			case 'D', 'E', 'F':
				kind := map[byte]navcache.ProcedureKind{
					'D': navcache.ProcedureSID,
					'E': navcache.ProcedureSTAR,
					'F': navcache.ProcedureApproach,
				}[line[12]]
				if proc, ok := procedureFromSSA(matchingSSARecs(line), kind); ok {
					ap := d.Airport(icao)
					ap.Procedures = append(ap.Procedures, proc)
				}

			case 'G': // runway
				if cont := line[21]; cont != '0' && cont != '1' {
					continue
				}
				if empty(line[27:31]) {
					// No heading available. This happens for e.g. seaports.
					continue
				}
				parseRunway(p, d.Airport(icao))

			case 'I': // localizer and glideslope
				if cont := line[21]; cont != '0' && cont != '1' {
					continue
				}
				parseLocalizer(p, d.Airport(icao))
			}
		}

		if p.err != nil {
			e.ErrorString("line %d: %v", lineno, p.err)
		}
	}

	return d
}

func parseAirport(p *recordParser, ap *Airport, t positioned.Type) {
	pos := p.latLong(32)
	pos.ElevM = math.FeetToMeters(float64(p.int(56, 61)))
	if p.err == nil {
		ap.Type, ap.Pos, ap.Name = t, pos, field(p.line, 93, 123)
	}
}

func parseFix(p *recordParser, d *Dataset) {
	if pos := p.latLong(32); p.err == nil {
		d.Fixes = append(d.Fixes, Fix{Ident: field(p.line, 13, 18), Pos: pos})
	}
}

func parseVHFNavaid(p *recordParser, d *Dataset) {
	line := p.line
	ident := field(line, 13, 17)
	name := field(line, 93, 123)
	class := line[27:32]
	freq := positioned.Frequency(p.int(22, 27)) // tens of kHz

	dmeType := positioned.TypeDME
	if class[1] == 'T' || class[1] == 'M' {
		dmeType = positioned.TypeTACAN
	}

	if empty(line[32:51]) {
		// Standalone DME or TACAN
		pos := p.latLong(55)
		pos.ElevM = math.FeetToMeters(float64(p.int(79, 84)))
		if p.err == nil {
			d.Navaids = append(d.Navaids, Navaid{Type: dmeType, Ident: ident, Name: name, Pos: pos, Freq: freq})
		}
		return
	}

	nav := Navaid{
		Type:  positioned.TypeVOR,
		Ident: ident,
		Name:  name,
		Pos:   p.latLong(32),
		Freq:  freq,
	}
	if !empty(line[55:74]) {
		dme := p.latLong(55)
		dme.ElevM = math.FeetToMeters(float64(p.int(79, 84)))
		nav.Pos.ElevM = dme.ElevM
		nav.DME, nav.DMEType = &dme, dmeType
		nav.Name += util.Select(dmeType == positioned.TypeTACAN, " VORTAC", " VOR-DME")
	} else {
		nav.Name += " VOR"
	}
	if v := field(line, 74, 79); len(v) == 5 {
		// Station declination, e.g. "E0130"
		decl := float64(p.int(75, 79)) / 10
		nav.Multiuse = util.Select(v[0] == 'W', -decl, decl)
	}
	if p.err == nil {
		d.Navaids = append(d.Navaids, nav)
	}
}

func parseNDB(p *recordParser, d *Dataset) {
	line := p.line
	nav := Navaid{
		Type:  positioned.TypeNDB,
		Ident: field(line, 13, 17),
		Name:  field(line, 93, 123) + " NDB",
		Pos:   p.latLong(32),
		Freq:  positioned.Frequency(p.int(22, 27) * 10), // tenths of kHz
	}
	if p.err == nil {
		d.Navaids = append(d.Navaids, nav)
	}
}

// runwayIdent converts an ARINC-424 runway identifier (e.g. "RW01L") to
// the usual form ("01L").
func runwayIdent(s string) string {
	return normalizeRunwayIdent(strings.TrimPrefix(strings.TrimSpace(s), "RW"))
}

func parseRunway(p *recordParser, ap *Airport) {
	line := p.line
	rwy := Runway{
		Ident:      runwayIdent(string(line[13:18])),
		LengthM:    math.FeetToMeters(float64(p.int(22, 27))),
		HeadingDeg: float64(p.int(27, 31)) / 10,
		DisplacedM: math.FeetToMeters(float64(p.int(71, 75))),
		WidthM:     math.FeetToMeters(float64(p.int(77, 80))),
	}

	// The position given is the landing threshold.
	threshold := p.latLong(32)
	rwy.Begin = math.Offset(threshold, math.OppositeHeading(rwy.HeadingDeg), rwy.DisplacedM)
	rwy.Begin.ElevM = math.FeetToMeters(float64(p.int(66, 71)))

	if p.err == nil {
		ap.Runways = append(ap.Runways, rwy)
	}
}

func parseLocalizer(p *recordParser, ap *Airport) {
	line := p.line
	loc := Navaid{
		Type:     positioned.TypeILS,
		Ident:    field(line, 13, 17),
		Pos:      p.latLong(32),
		Freq:     positioned.Frequency(p.int(22, 27)),
		Multiuse: float64(p.int(51, 55)) / 10,
		Runway:   runwayIdent(string(line[27:32])),
	}
	hasGS := !empty(line[55:74])
	var gsPos math.Geod
	if hasGS {
		gsPos = p.latLong(55)
	}
	if p.err != nil {
		return
	}
	if !hasGS {
		loc.Type = positioned.TypeLOC
	}
	loc.Name = ap.Ident + " " + loc.Runway + util.Select(hasGS, " ILS", " LOC")
	ap.ILS = append(ap.ILS, loc)

	if hasGS {
		gs := loc
		gs.Type = positioned.TypeGS
		gs.Pos = gsPos
		gs.Name = ap.Ident + " " + loc.Runway + " GS"
		ap.ILS = append(ap.ILS, gs)
	}
}

// approachTypes maps the ARINC-424 approach route type to a name.
var approachTypes = map[byte]string{
	'B': "LOC/BC",
	'D': "VOR/DME",
	'G': "IGS",
	'H': "RNP",
	'I': "ILS",
	'J': "GLS",
	'L': "LOC",
	'N': "NDB",
	'P': "GPS",
	'Q': "NDB/DME",
	'R': "RNAV",
	'S': "VOR",
	'T': "TACAN",
	'V': "VOR",
	'X': "LDA",
}

// approachRunway returns the runway that an approach serves, given its
// identifier, e.g. "I28L" -> "28L". Circling approaches ("VOR-A") return
// "".
func approachRunway(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) < 3 || id[1] < '0' || id[1] > '9' {
		return ""
	}
	rwy := id[1:3]
	if len(id) > 3 && strings.ContainsRune("LRC", rune(id[3])) {
		rwy += id[3:4]
	}
	return rwy
}

func procedureFromSSA(recs []ssaRecord, kind navcache.ProcedureKind) (navcache.Procedure, bool) {
	if len(recs) == 0 {
		return navcache.Procedure{}, false
	}

	proc := navcache.Procedure{Kind: kind, Ident: recs[0].id}
	addRunway := func(rwy string) {
		if rwy != "" && !slices.Contains(proc.Runways, rwy) {
			proc.Runways = append(proc.Runways, rwy)
		}
	}

	for _, r := range recs {
		if kind == navcache.ProcedureApproach {
			if r.routeType != 'A' && proc.Type == "" {
				proc.Type = approachTypes[r.routeType]
			}
		} else if strings.HasPrefix(r.transition, "RW") {
			rwy := runwayIdent(r.transition)
			if strings.HasSuffix(rwy, "B") {
				// All parallel runways
				base := strings.TrimSuffix(rwy, "B")
				for _, s := range []string{"L", "C", "R"} {
					addRunway(base + s)
				}
			} else {
				addRunway(rwy)
			}
		}

		if r.fix != "" && !strings.HasPrefix(r.fix, "RW") && !slices.Contains(proc.Waypoints, r.fix) {
			proc.Waypoints = append(proc.Waypoints, r.fix)
		}
	}
	if kind == navcache.ProcedureApproach {
		addRunway(approachRunway(proc.Ident))
	}

	return proc, len(proc.Waypoints) > 0
}
