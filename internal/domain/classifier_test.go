package domain

import (
	"reflect"
	"testing"
)

// =============================================================================
// Classification Tests
// =============================================================================

func TestClassifyItem(t *testing.T) {
	tests := []struct {
		name         string
		item         CatalogItem
		wantStations []Station
		wantInferred bool
	}{
		{
			name: "explicit preferred station wins over keywords",
			item: CatalogItem{
				ID:   "item-1",
				Name: "House Beer",
				Category: &Category{
					ID:               "cat-1",
					Name:             "Food Specials",
					PreferredStation: StationBeverage,
				},
			},
			wantStations: []Station{StationBeverage},
			wantInferred: false,
		},
		{
			name: "beer keyword routes to beverage",
			item: CatalogItem{
				ID:       "item-2",
				Name:     "Pale Pilsen",
				Category: &Category{ID: "cat-2", Name: "Craft Beers"},
			},
			wantStations: []Station{StationBeverage},
			wantInferred: false,
		},
		{
			name: "drink keyword routes to beverage case-insensitively",
			item: CatalogItem{
				ID:       "item-3",
				Name:     "Iced Tea",
				Category: &Category{ID: "cat-3", Name: "Soft DRINKS"},
			},
			wantStations: []Station{StationBeverage},
			wantInferred: false,
		},
		{
			name: "cocktail keyword routes to beverage",
			item: CatalogItem{
				ID:       "item-4",
				Name:     "Mojito",
				Category: &Category{ID: "cat-4", Name: "Signature Cocktails"},
			},
			wantStations: []Station{StationBeverage},
			wantInferred: false,
		},
		{
			name: "appetizer keyword routes to food",
			item: CatalogItem{
				ID:       "item-5",
				Name:     "Calamares",
				Category: &Category{ID: "cat-5", Name: "Appetizers"},
			},
			wantStations: []Station{StationFood},
			wantInferred: false,
		},
		{
			name: "snack keyword routes to food",
			item: CatalogItem{
				ID:       "item-6",
				Name:     "Chicharon",
				Category: &Category{ID: "cat-6", Name: "Bar Snacks"},
			},
			wantStations: []Station{StationFood},
			wantInferred: false,
		},
		{
			name: "unmatched category falls back to food and is inferred",
			item: CatalogItem{
				ID:       "item-7",
				Name:     "Mystery Platter",
				Category: &Category{ID: "cat-7", Name: "Seasonal"},
			},
			wantStations: []Station{StationFood},
			wantInferred: true,
		},
		{
			name:         "missing category falls back to food and is inferred",
			item:         CatalogItem{ID: "item-8", Name: "Sisig"},
			wantStations: []Station{StationFood},
			wantInferred: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyItem(tt.item)
			if !reflect.DeepEqual(got.Stations, tt.wantStations) {
				t.Errorf("Stations = %v, want %v", got.Stations, tt.wantStations)
			}
			if got.Inferred != tt.wantInferred {
				t.Errorf("Inferred = %v, want %v", got.Inferred, tt.wantInferred)
			}
		})
	}
}

func TestClassifyItem_Deterministic(t *testing.T) {
	item := CatalogItem{
		ID:       "item-1",
		Name:     "San Miguel",
		Category: &Category{ID: "cat-1", Name: "Beers"},
	}

	first := ClassifyItem(item)
	for i := 0; i < 10; i++ {
		if got := ClassifyItem(item); !reflect.DeepEqual(got, first) {
			t.Fatalf("call %d returned %+v, first call returned %+v", i, got, first)
		}
	}
}
