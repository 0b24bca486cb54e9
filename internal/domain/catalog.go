package domain

// Catalog read model. These types are consumed read-only from the external
// catalog service; the routing engine never mutates them.

// Category carries the classification metadata for a catalog item
type Category struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	PreferredStation Station `json:"preferredStation,omitempty"`
}

// BundleComponent is one constituent of a bundle, in catalog display order
type BundleComponent struct {
	Item     CatalogItem `json:"item"`
	Quantity int         `json:"quantity"`
}

// CatalogItem is a sellable item, optionally a bundle of other items
type CatalogItem struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category *Category         `json:"category,omitempty"`
	Bundle   []BundleComponent `json:"bundle,omitempty"`
}

// IsBundle reports whether the item is a composite bundle. A bundle with a
// declared but empty constituent list is still a bundle, so the check is on
// presence rather than length.
func (i CatalogItem) IsBundle() bool {
	return i.Bundle != nil
}

// OrderLine is one line of a confirmed order
type OrderLine struct {
	LineID   string `json:"lineId"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
	Removed  bool   `json:"removed"`
}

// ConfirmedOrder is the payload the routing engine receives once an order
// has been confirmed by the sales flow
type ConfirmedOrder struct {
	OrderID string      `json:"orderId"`
	Lines   []OrderLine `json:"lines"`
}
