// Package tabular loads uploaded spreadsheets for the data analysis agent.
package tabular

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"business-consultant/internal/apperrors"
	"business-consultant/internal/helper"
	"business-consultant/internal/models"
)

const previewRows = 5

// Dataset is an uploaded table staged as CSV in its own working directory.
// Path always points at a CSV file, whatever the upload format was.
type Dataset struct {
	Name     string
	Dir      string
	Path     string
	Columns  []string
	Preview  [][]string
	RowCount int
}

// Load stages the upload under baseDir/<name> and reads its header and first rows.
func Load(up models.Upload, baseDir string) (*Dataset, error) {
	desc := models.Describe(up.Name)
	if !desc.Kind.Tabular() {
		return nil, apperrors.Ingestion(up.Name, fmt.Errorf("not a tabular file"))
	}

	dir := filepath.Join(baseDir, datasetDirName(up.Name))
	data := up.Data
	if desc.Ext == ".xlsx" {
		converted, err := xlsxToCSV(up.Data)
		if err != nil {
			return nil, apperrors.Ingestion(up.Name, err)
		}
		data = converted
	}

	csvName := strings.TrimSuffix(filepath.Base(up.Name), filepath.Ext(up.Name)) + ".csv"
	path, err := helper.StageFile(dir, csvName, data)
	if err != nil {
		return nil, apperrors.Ingestion(up.Name, err)
	}

	ds := &Dataset{Name: up.Name, Dir: dir, Path: path}
	if err := ds.scan(bytes.NewReader(data)); err != nil {
		return nil, apperrors.Ingestion(up.Name, err)
	}
	return ds, nil
}

func (d *Dataset) scan(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("file is empty")
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	d.Columns = header
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read row %d: %w", d.RowCount+2, err)
		}
		if len(d.Preview) < previewRows {
			d.Preview = append(d.Preview, rec)
		}
		d.RowCount++
	}
}

// PreviewMarkdown renders the header and first rows as a markdown table.
func (d *Dataset) PreviewMarkdown() string {
	var sb strings.Builder
	row := func(cells []string) {
		sb.WriteString("|")
		for i := range d.Columns {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}
	row(d.Columns)
	sb.WriteString("|" + strings.Repeat(" --- |", len(d.Columns)) + "\n")
	for _, r := range d.Preview {
		row(r)
	}
	fmt.Fprintf(&sb, "\n%d rows x %d columns\n", d.RowCount, len(d.Columns))
	return sb.String()
}

// ChartPath is where the analysis sandbox must write its chart.
func (d *Dataset) ChartPath(plotFile string) string {
	return filepath.Join(d.Dir, plotFile)
}

// ClearChart removes a chart left by a previous run.
func (d *Dataset) ClearChart(plotFile string) error {
	err := os.Remove(d.ChartPath(plotFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HasChart reports whether a chart was produced.
func (d *Dataset) HasChart(plotFile string) bool {
	info, err := os.Stat(d.ChartPath(plotFile))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// xlsxToCSV converts the first sheet of a workbook.
func xlsxToCSV(data []byte) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// datasetDirName is readable and unique per upload name; names that sanitize
// alike are told apart by a hash of the full name.
func datasetDirName(name string) string {
	base := filepath.Base(name)
	sum := sha256.Sum256([]byte(name))
	return "dataset-" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base) + "-" + hex.EncodeToString(sum[:4])
}
