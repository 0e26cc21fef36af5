// Package query implements the filter, sort and paginate pipeline shared by
// every estatehub resource listing.
//
// A resource describes its fields once with a Schema:
//
//	schema := query.NewSchema[Property]("property").
//		String("status", func(p Property) string { return p.Status }, query.Filterable|query.Sortable).
//		Number("price", func(p Property) (float64, bool) { return p.Price, p.Price > 0 }, query.Rangeable|query.Sortable).
//		Time("createdAt", func(p Property) time.Time { return p.CreatedAt }, query.Sortable).
//		Search("title", "address")
//
// and runs requests through it:
//
//	spec, err := query.ParseSpec(r.URL.Query(), schema)
//	result, err := query.Run(schema, tenantRecords, spec)
//
// The pipeline is fixed: validation, then filtering (exact filters AND ranges
// AND search), then a stable single-field sort, then pagination. Records must
// be tenant scoped before they reach Run.
package query
