package domain

import "fmt"

// ExpandedLine is one routable (item, quantity) pair produced from an order
// line. For bundle lines, LineID is a synthetic sub-line id derived from the
// bundle line and the component's position, and BundleLineID points back at
// the bundle's own line.
type ExpandedLine struct {
	LineID       string
	BundleLineID string
	Item         CatalogItem
	Quantity     int
	Notes        string
}

// ExpandLine resolves an order line into routable entries. Non-bundle lines
// mirror to a single entry. Bundle lines emit one entry per component in
// catalog display order, with quantity = line quantity x packaged quantity.
// An empty bundle yields an empty slice; the caller decides how to report it.
// Expansion is single-level: components are taken as plain sellable items, so
// a component that is itself a bundle is emitted as-is rather than expanded
// again. The catalog only nests plain items inside bundles.
// Purely structural, deterministic for the same inputs.
func ExpandLine(line OrderLine, item CatalogItem) []ExpandedLine {
	if !item.IsBundle() {
		return []ExpandedLine{{
			LineID:   line.LineID,
			Item:     item,
			Quantity: line.Quantity,
			Notes:    line.Notes,
		}}
	}

	expanded := make([]ExpandedLine, 0, len(item.Bundle))
	for idx, component := range item.Bundle {
		expanded = append(expanded, ExpandedLine{
			LineID:       fmt.Sprintf("%s#%d", line.LineID, idx),
			BundleLineID: line.LineID,
			Item:         component.Item,
			Quantity:     line.Quantity * component.Quantity,
			Notes:        line.Notes,
		})
	}
	return expanded
}
