// Package export writes lead result sets to CSV and XLSX, and merges
// partial CSVs from parallel workers into one deduplicated file.
package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen-cli/internal/dedupe"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Header is the CSV column order for lead exports.
var Header = []string{"Name", "Address", "Phone", "Email", "Website"}

// WriteCSV writes the RFC 4180 lead CSV: header row then one row per
// lead, fields quoted as needed with internal quotes doubled.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range leads {
		if err := cw.Write([]string{l.Company, l.Address, l.Phone, l.Email, l.Website}); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteCSVFile writes the lead CSV to a file path.
func WriteCSVFile(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := WriteCSV(f, leads); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// ReadCSV parses a lead CSV produced by WriteCSV. The header row is
// required and skipped.
func ReadCSV(r io.Reader) ([]model.Lead, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv")
	}
	if len(rows) == 0 {
		return nil, eris.New("export: empty csv, missing header")
	}

	leads := make([]model.Lead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		leads = append(leads, model.Lead{
			Company: row[0],
			Address: row[1],
			Phone:   row[2],
			Email:   row[3],
			Website: row[4],
		})
	}
	return leads, nil
}

// MergeCSVFiles reads partial lead CSVs from parallel workers and
// writes one merged file, dropping cross-file duplicates on the
// company+address, phone, and email axes.
func MergeCSVFiles(outPath string, inPaths []string) (int, error) {
	merger := dedupe.NewMerger()
	var merged []model.Lead

	for _, p := range inPaths {
		f, err := os.Open(p)
		if err != nil {
			return 0, eris.Wrapf(err, "export: open %s", p)
		}
		leads, err := ReadCSV(f)
		_ = f.Close()
		if err != nil {
			return 0, eris.Wrapf(err, "export: parse %s", p)
		}
		merged = append(merged, merger.Merge(leads)...)
	}

	if err := WriteCSVFile(outPath, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// WriteXLSX writes the leads as a single-sheet workbook with the same
// columns as the CSV export.
func WriteXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}
	for _, l := range leads {
		row := sheet.AddRow()
		for _, v := range []string{l.Company, l.Address, l.Phone, l.Email, l.Website} {
			row.AddCell().SetString(v)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
