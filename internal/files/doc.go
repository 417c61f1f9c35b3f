// Package files reads inspection spreadsheets from disk and writes processing outputs.
//
// ReadTable decodes an .xlsx/.xlsm workbook (via excelize) or a CSV export into a
// domain.Table: the first row is the header, blank rows are dropped.
//
// Discovery locates inspection files in a directory and picks the newest one.
// Manager writes outputs atomically below a base directory.
//
// Example usage:
//
//	path, err := files.NewDiscovery("").ResolveInput("exports")
//	table, source, err := files.ReadTable(path, "")
//
//	manager := files.NewManager("out", logger)
//	err = manager.WriteFile("report.json", func(w io.Writer) error {
//	    return json.NewEncoder(w).Encode(report)
//	})
package files
