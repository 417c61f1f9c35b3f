package files

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "vehinspect/internal/errors"
	"vehinspect/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrUnsupportedFormat is returned for files that are neither workbooks nor CSV
var ErrUnsupportedFormat = errors.New("unsupported file format")

// IsSupported reports whether name has an extension ReadTable can decode
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// ReadTable decodes the first row of a sheet as the header and the remaining
// non-blank rows as data. sheet selects a worksheet by name; empty means the first one.
// CSV files ignore sheet.
func ReadTable(path, sheet string) (domain.Table, domain.SourceInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Table{}, domain.SourceInfo{}, apperrors.NewInputError("cannot open file", err).
			WithContext("path", path)
	}
	source := domain.SourceInfo{FileName: filepath.Base(path), FileSize: info.Size()}

	var table domain.Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, source.SheetName, err = readWorkbook(path, sheet)
	case ".csv":
		table, err = readCSV(path)
	default:
		return domain.Table{}, source, apperrors.NewInputError("cannot read file", ErrUnsupportedFormat).
			WithContext("path", path)
	}
	if err != nil {
		return domain.Table{}, source, apperrors.NewParsingError("cannot decode file", err).
			WithContext("path", path)
	}
	return table, source, nil
}

func readWorkbook(path, sheet string) (domain.Table, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Table{}, "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return domain.Table{}, "", fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, sheet, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return domain.Table{}, sheet, nil
	}

	table := domain.Table{Header: rows[0]}
	for r, values := range rows[1:] {
		row := make(domain.RawRow, len(values))
		for c, v := range values {
			row[c] = workbookCell(f, sheet, c, r+1, v)
		}
		if !blankRow(row) {
			table.Rows = append(table.Rows, row)
		}
	}
	return table, sheet, nil
}

// workbookCell decodes a raw cell value. Numbers stay numeric unless the cell
// was stored as text; dates arrive as serial numbers.
func workbookCell(f *excelize.File, sheet string, col, row int, raw string) domain.Cell {
	if strings.TrimSpace(raw) == "" {
		return domain.EmptyCell()
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return domain.StringCell(raw)
	}

	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err == nil {
		if typ, err := f.GetCellType(sheet, name); err == nil &&
			(typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString) {
			return domain.StringCell(raw)
		}
	}
	return domain.NumberCell(num)
}

func readCSV(path string) (domain.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer file.Close()

	return decodeCSV(file)
}

// decodeCSV reads delimited text. The delimiter is ';' when the first line has
// more semicolons than commas, otherwise ','. Every value stays text.
func decodeCSV(r io.Reader) (domain.Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	first, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return domain.Table{}, err
	}
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		reader.Comma = ';'
	}

	var table domain.Table
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, err
		}

		if table.Header == nil {
			table.Header = record
			continue
		}
		row := domain.StringRow(record...)
		if !blankRow(row) {
			table.Rows = append(table.Rows, row)
		}
	}
	return table, nil
}

func blankRow(row domain.RawRow) bool {
	for _, c := range row {
		if c.Kind != domain.CellEmpty && !(c.Kind == domain.CellString && strings.TrimSpace(c.Str) == "") {
			return false
		}
	}
	return true
}
