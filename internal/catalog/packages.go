// Package catalog holds the static membership package price table.
// Packages are configuration, not database rows: purchases snapshot
// the session count, validity and price at purchase time, so editing
// this table never rewrites history.
package catalog

// Package describes a purchasable bundle of class sessions.
type Package struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"` // group or private
	Price        float64 `json:"price"`    // GMD
	Sessions     int     `json:"sessions"`
	ValidityDays int     `json:"validity_days"`
}

// ordered keeps the listing stable for the public /v1/packages endpoint.
var ordered = []Package{
	{ID: "single", Name: "Single Class", Category: "group", Price: 850, Sessions: 1, ValidityDays: 30},
	{ID: "group-4", Name: "4 Class Pack", Category: "group", Price: 3000, Sessions: 4, ValidityDays: 30},
	{ID: "group-8", Name: "8 Class Pack", Category: "group", Price: 5600, Sessions: 8, ValidityDays: 30},
	{ID: "group-12", Name: "12 Class Pack", Category: "group", Price: 7800, Sessions: 12, ValidityDays: 60},
	{ID: "unlimited", Name: "Monthly Unlimited", Category: "group", Price: 9500, Sessions: 30, ValidityDays: 30},
	{ID: "private-1", Name: "Private 1:1 Session", Category: "private", Price: 2000, Sessions: 1, ValidityDays: 30},
	{ID: "private-5", Name: "Private 5 Pack", Category: "private", Price: 9000, Sessions: 5, ValidityDays: 90},
}

var byID = func() map[string]Package {
	m := make(map[string]Package, len(ordered))
	for _, p := range ordered {
		m[p.ID] = p
	}
	return m
}()

// All returns every package in display order.
func All() []Package {
	out := make([]Package, len(ordered))
	copy(out, ordered)
	return out
}

// Lookup returns the package for an id, or false when the id is not in
// the table.
func Lookup(id string) (Package, bool) {
	p, ok := byID[id]
	return p, ok
}
