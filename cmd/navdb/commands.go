// cmd/navdb/commands.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/navlist"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

var (
	forceImport bool
	numResults  int
	rangeNM     float64
	typeName    string
	exactIdent  bool
	navType     string
)

var buildCmd = &cobra.Command{
	Use:   "build <file>...",
	Short: "Import CIFP and OurAirports files into the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

var closestCmd = &cobra.Command{
	Use:   "closest <lat> <lon>",
	Short: "Find the entities closest to a position",
	Args:  cobra.ExactArgs(2),
	RunE:  runClosest,
}

var identCmd = &cobra.Command{
	Use:   "ident <ident>",
	Short: "Find entities by ident",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdent,
}

var runwayCmd = &cobra.Command{
	Use:   "runway <airport> <heading>",
	Short: "Find the best runway at an airport for a heading",
	Args:  cobra.ExactArgs(2),
	RunE:  runRunway,
}

var freqCmd = &cobra.Command{
	Use:   "freq <MHz> <lat> <lon>",
	Short: "Find the navaid that would be received on a frequency",
	Args:  cobra.ExactArgs(3),
	RunE:  runFreq,
}

var waypointCmd = &cobra.Command{
	Use:   "waypoint",
	Short: "Manage user waypoints",
}

var waypointAddCmd = &cobra.Command{
	Use:   "add <ident> <lat> <lon>",
	Short: "Create a user waypoint",
	Args:  cobra.ExactArgs(3),
	RunE:  runWaypointAdd,
}

var waypointDeleteCmd = &cobra.Command{
	Use:   "delete <ident>",
	Short: "Delete a user waypoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runWaypointDelete,
}

func init() {
	buildCmd.Flags().BoolVarP(&forceImport, "force", "f", false, "import even if no file has changed")

	closestCmd.Flags().IntVarP(&numResults, "num", "n", 10, "maximum number of results")
	closestCmd.Flags().Float64VarP(&rangeNM, "range", "r", 50, "search radius in nautical miles")
	closestCmd.Flags().StringVarP(&typeName, "type", "t", "", "entity type (e.g. airport, vor, fix)")

	identCmd.Flags().BoolVarP(&exactIdent, "exact", "e", false, "require an exact match rather than a prefix")
	identCmd.Flags().StringVarP(&typeName, "type", "t", "", "entity type (e.g. airport, vor, fix)")

	freqCmd.Flags().StringVarP(&navType, "type", "t", "any", "navaid type: any, fix, vor, ndb, ils, dme, or tacan")

	waypointCmd.AddCommand(waypointAddCmd, waypointDeleteCmd)
}

func typeFilter() (*positioned.Filter, error) {
	if typeName == "" {
		return nil, nil
	}
	t := positioned.TypeFromName(typeName)
	if t == positioned.TypeInvalid {
		return nil, fmt.Errorf("%s: unknown entity type", typeName)
	}
	return positioned.TypeFilter(t), nil
}

func parsePos(lat, lon string) (math.Geod, error) {
	var g math.Geod
	var err error
	if g.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return g, fmt.Errorf("%s: invalid latitude: %w", lat, err)
	}
	if g.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
		return g, fmt.Errorf("%s: invalid longitude: %w", lon, err)
	}
	return g, nil
}

func describe(p positioned.Positioned, from *math.Geod) string {
	s := fmt.Sprintf("%-8s %-10s %-30s %s %6.0fft", p.Ident(), p.Type(), p.Name(), p.Geod(), p.Geod().ElevationFt())
	if nav, ok := p.(*positioned.Navaid); ok && nav.Freq != 0 {
		s += " " + nav.Freq.String()
	}
	if from != nil {
		s += fmt.Sprintf(" %.1fnm", math.DistanceNM(*from, p.Geod()))
	}
	return s
}

func runBuild(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	st, warnings, err := db.Import(ctx, forceImport, args...)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	if err != nil {
		return err
	}

	show(st, func() {
		if st.Files == 0 {
			fmt.Println("Cache is up to date")
			return
		}
		fmt.Printf("Imported %d files in %s: %d airports, %d runways, %d helipads, %d comms, "+
			"%d ILS, %d navaids, %d fixes, %d procedures (%d replaced)\n", st.Files, st.Elapsed,
			st.Airports, st.Runways, st.Helipads, st.Comms, st.ILS, st.Navaids, st.Fixes,
			st.Procedures, st.Replaced)
	})
	return nil
}

func runClosest(cmd *cobra.Command, args []string) error {
	pos, err := parsePos(args[0], args[1])
	if err != nil {
		return err
	}
	filter, err := typeFilter()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	found, partial, err := db.FindClosestNPartial(pos, numResults, rangeNM, filter)
	if err != nil {
		return err
	}
	show(found, func() {
		for _, p := range found {
			fmt.Println(describe(p, &pos))
		}
		if partial {
			fmt.Println("(search time limit reached; results may be incomplete)")
		}
	})
	return nil
}

func runIdent(cmd *cobra.Command, args []string) error {
	filter, err := typeFilter()
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	found := db.FindAllWithIdent(args[0], filter, exactIdent)
	show(found, func() {
		for _, p := range found {
			fmt.Println(describe(p, nil))
		}
	})
	return nil
}

func runRunway(cmd *cobra.Command, args []string) error {
	hdg, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("%s: invalid heading: %w", args[1], err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ap, err := db.Airport(strings.ToUpper(args[0]))
	if err != nil {
		return err
	}
	rwy := ap.FindBestRunwayForHeading(hdg)
	if rwy == nil {
		return fmt.Errorf("%s: no runways", ap.Ident())
	}
	show(rwy, func() {
		fmt.Printf("%s %s: heading %.0f, %.0f x %.0f ft\n", ap.Ident(), rwy.Ident(), rwy.HeadingDeg,
			rwy.LengthFt(), rwy.WidthFt())
		if ils, err := ap.ILS(rwy.Ident()); err == nil && ils != nil {
			fmt.Printf("  %s\n", describe(ils, nil))
		}
		if sids := ap.SIDsForRunway(rwy.Ident()); len(sids) > 0 {
			idents := util.MapSlice(sids, func(p navcache.Procedure) string { return p.Ident })
			fmt.Printf("  SIDs: %s\n", strings.Join(idents, " "))
		}
	})
	return nil
}

func runFreq(cmd *cobra.Command, args []string) error {
	freq, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("%s: invalid frequency: %w", args[0], err)
	}
	pos, err := parsePos(args[1], args[2])
	if err != nil {
		return err
	}
	filter, ok := navlist.FilterFromTypeString(navType)
	if !ok {
		return fmt.Errorf("%s: unknown navaid type", navType)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	nav, err := db.NavList().FindByFreq(freq, pos, filter)
	if err != nil {
		return err
	}
	if nav == nil {
		fmt.Printf("Nothing in range on %.2f\n", freq)
		return nil
	}
	show(nav, func() { fmt.Println(describe(nav, &pos)) })
	return nil
}

func runWaypointAdd(cmd *cobra.Command, args []string) error {
	pos, err := parsePos(args[1], args[2])
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	wp, err := db.CreateUserWaypoint(strings.ToUpper(args[0]), pos)
	if err != nil {
		return err
	}
	fmt.Println(describe(wp, nil))
	return nil
}

func runWaypointDelete(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ok, err := db.DeleteUserWaypoint(strings.ToUpper(args[0]))
	if err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%s: no such user waypoint", args[0])
	}
	return nil
}
