package leadimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	errNoWorksheet = errors.New("no worksheets found")

	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	zipMagic = []byte("PK\x03\x04")
)

type tableFormat int

const (
	formatWorkbook tableFormat = iota
	formatDelimited
)

func detectFormat(filename string, data []byte) tableFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".xls":
		return formatWorkbook
	case ".csv", ".tsv", ".txt":
		return formatDelimited
	}
	if bytes.HasPrefix(data, zipMagic) {
		return formatWorkbook
	}
	return formatDelimited
}

// readTable returns every row of the first worksheet, header included.
// Intermediate blank rows are kept so row numbers match the file.
func readTable(data []byte, filename string) ([][]string, error) {
	if detectFormat(filename, data) == formatWorkbook {
		return readWorkbook(data)
	}
	return readDelimited(data)
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoWorksheet
	}

	// Raw values keep number formats like "$15,000" from defeating float parsing
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	// GetRows drops trailing empty rows; the sheet dimension still counts them
	if last := dimensionLastRow(f, sheets[0]); last > len(rows) && len(rows) > 0 {
		rows = append(rows, make([][]string, last-len(rows))...)
	}
	return rows, nil
}

// dimensionLastRow returns the last row of the sheet's used range, or 0
// when the dimension is missing or unparsable
func dimensionLastRow(f *excelize.File, sheet string) int {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return 0
	}
	ref := dim
	if i := strings.LastIndexByte(dim, ':'); i >= 0 {
		ref = dim[i+1:]
	}
	_, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil || row > excelize.TotalRows {
		return 0
	}
	return row
}

func readDelimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// encoding/csv skips empty lines; pad them back in as empty rows
	var rows [][]string
	line := 1 // line at offset
	var offset int64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		start, _ := reader.FieldPos(0)
		for i := line; i < start; i++ {
			rows = append(rows, []string{})
		}
		rows = append(rows, record)

		next := reader.InputOffset()
		line += bytes.Count(data[offset:next], []byte{'\n'})
		offset = next
	}
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte{byte(d)}); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
