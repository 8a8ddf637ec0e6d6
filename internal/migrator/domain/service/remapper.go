package service

import "catalog-migrator/internal/migrator/domain/model"

// RemapVariantIDs rewrites source variant ids into destination variant ids.
// A source id is resolved to its variant's title, and the title to the first
// destination variant carrying it. Ids that cannot be resolved either way
// are returned in unmapped.
func RemapVariantIDs(ids []int64, source, destination []model.Variant) (mapped, unmapped []int64) {
	titleOf := make(map[int64]string, len(source))
	for _, v := range source {
		titleOf[v.ID] = v.Title
	}
	byTitle := make(map[string]int64, len(destination))
	for _, v := range destination {
		if _, seen := byTitle[v.Title]; !seen {
			byTitle[v.Title] = v.ID
		}
	}

	for _, id := range ids {
		title, ok := titleOf[id]
		if !ok {
			unmapped = append(unmapped, id)
			continue
		}
		dst, ok := byTitle[title]
		if !ok {
			unmapped = append(unmapped, id)
			continue
		}
		mapped = append(mapped, dst)
	}
	return mapped, unmapped
}

// RemapCollects translates collection membership through the products
// table. Members without a destination product are dropped and their source
// product ids returned.
func RemapCollects(collects []model.Collect, products *model.IDTable) (kept []model.Collect, dropped []int64) {
	for _, c := range collects {
		dst, ok := products.Lookup(c.ProductID)
		if !ok {
			dropped = append(dropped, c.ProductID)
			continue
		}
		kept = append(kept, model.Collect{ProductID: dst, Position: c.Position})
	}
	return kept, dropped
}
