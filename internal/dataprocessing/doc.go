// Package dataprocessing turns decoded vehicle-inspection spreadsheets into a
// scored, queryable inspection dataset.
//
// # Architecture
//
// The package is organized into five components, leaves first:
//
// 1. Detector: classifies header cells into fixed roles and inspection items
// 2. Normalizer: maps a raw answer to a compliant / non-compliant verdict
// 3. Builder: scores one data row into a domain.Inspection
// 4. Aggregator: derives statistics, item analysis and grouped roll-ups
// 5. Filter: narrows and sorts an inspection set
//
// Processor wires them into a pipeline with logging, tracing, metrics and
// progress reporting.
//
// # Usage
//
//	processor := dataprocessing.NewProcessor(logger, cfg.Processing,
//	    dataprocessing.WithProgress(func(p operations.Progress) { ... }))
//
//	data, err := processor.Process(ctx, table, source)
//	if err != nil {
//	    return err
//	}
//
//	view, err := processor.Query(ctx, data, domain.Filters{RiskLevel: domain.RiskCritical})
//
// # Data Flow
//
//	Header → DetectColumns → ColumnMap
//	ColumnMap + Rows → BuildInspection → Inspections → Aggregator → Stats
//	Inspections + Filters → ApplyFilters → subset → Aggregator → View
//
// # Error Handling
//
// Only two conditions abort processing: a missing header row (ErrNoHeader)
// and a table without data rows (ErrNoDataRows). Both are returned wrapped in
// an INPUT AppError. Malformed cells never fail a row: unparseable mileage
// becomes 0, unparseable timestamps become nil, and rows without inspector or
// vehicle stay in RawInspections but are left out of statistics.
//
// Invalid filters are rejected by Query with a VALIDATION AppError.
package dataprocessing
