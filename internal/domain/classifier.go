package domain

import "strings"

// Classification is the result of routing a catalog item to stations
type Classification struct {
	Stations []Station
	// Inferred is set when no category data matched and the food-station
	// default was applied
	Inferred bool
}

// stationKeywords maps category-name tokens to stations. Matching is
// case-insensitive substring; first match wins in the order below.
var stationKeywords = []struct {
	token   string
	station Station
}{
	{"beer", StationBeverage},
	{"beverage", StationBeverage},
	{"drink", StationBeverage},
	{"alcohol", StationBeverage},
	{"cocktail", StationBeverage},
	{"wine", StationBeverage},
	{"food", StationFood},
	{"appetizer", StationFood},
	{"snack", StationFood},
	{"meal", StationFood},
	{"dessert", StationFood},
}

// ClassifyItem determines the set of stations an item must be prepared at.
// Priority: explicit category preferred station, then a keyword scan of the
// category name, then the food-station default flagged as inferred. Pure
// function, never fails. Bundles are expanded before classification; passing
// a bundle here classifies the bundle's own category metadata.
func ClassifyItem(item CatalogItem) Classification {
	if item.Category != nil {
		if item.Category.PreferredStation.IsValid() {
			return Classification{Stations: []Station{item.Category.PreferredStation}}
		}
		if station, ok := matchKeyword(item.Category.Name); ok {
			return Classification{Stations: []Station{station}}
		}
	}
	return Classification{Stations: []Station{StationFood}, Inferred: true}
}

func matchKeyword(name string) (Station, bool) {
	lowered := strings.ToLower(name)
	for _, kw := range stationKeywords {
		if strings.Contains(lowered, kw.token) {
			return kw.station, true
		}
	}
	return "", false
}
