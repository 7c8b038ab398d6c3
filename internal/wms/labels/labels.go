// Package labels builds printable location labels and bay totems from the
// location directory, and moves location lists in and out of XLSX workbooks.
package labels

import (
	"sort"
	"strconv"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
)

// LocationLabel is the content of the label stuck on one location.
type LocationLabel struct {
	Barcode          string `json:"barcode"`
	Code             string `json:"location_code"`
	Aisle            string `json:"aisle"`
	Bay              string `json:"bay"`
	Level            string `json:"level"`
	LocationType     string `json:"location_type"`
	ForkliftRequired bool   `json:"forklift_required"`
}

// BayTotem is the sign at the foot of a bay listing every level in it,
// top shelf first.
type BayTotem struct {
	Aisle  string          `json:"aisle"`
	Bay    string          `json:"bay"`
	Levels []LocationLabel `json:"levels"`
}

// ForLocation returns the label for loc
func ForLocation(loc *repository.Location) LocationLabel {
	return LocationLabel{
		Barcode:          loc.Barcode,
		Code:             loc.Code,
		Aisle:            loc.Aisle,
		Bay:              loc.Bay,
		Level:            loc.Level,
		LocationType:     loc.Type,
		ForkliftRequired: loc.ForkliftRequired,
	}
}

// ForLocations returns labels ordered by location code
func ForLocations(locs []*repository.Location) []LocationLabel {
	out := make([]LocationLabel, 0, len(locs))
	for _, loc := range locs {
		out = append(out, ForLocation(loc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Totems groups locations by aisle and bay. Totems are ordered by aisle then
// bay; levels within a totem are ordered highest first.
func Totems(locs []*repository.Location) []BayTotem {
	index := map[[2]string]int{}
	var totems []BayTotem
	for _, loc := range locs {
		key := [2]string{loc.Aisle, loc.Bay}
		i, ok := index[key]
		if !ok {
			i = len(totems)
			index[key] = i
			totems = append(totems, BayTotem{Aisle: loc.Aisle, Bay: loc.Bay})
		}
		totems[i].Levels = append(totems[i].Levels, ForLocation(loc))
	}

	for i := range totems {
		levels := totems[i].Levels
		sort.Slice(levels, func(a, b int) bool { return levelAbove(levels[a].Level, levels[b].Level) })
	}
	sort.Slice(totems, func(i, j int) bool {
		if totems[i].Aisle != totems[j].Aisle {
			return totems[i].Aisle < totems[j].Aisle
		}
		return totems[i].Bay < totems[j].Bay
	})
	return totems
}

// levelAbove orders numeric levels numerically and anything else lexically.
func levelAbove(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a > b
}
