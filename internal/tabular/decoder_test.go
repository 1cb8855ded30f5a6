package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	input := "Name,Email,Phone\nAlice,alice@example.com,13800138000\nBob,bob@example.com,\n"
	dataset, err := Decode(strings.NewReader(input), "contacts.csv")
	if err != nil {
		t.Fatalf("decode csv failed: %v", err)
	}
	if len(dataset.Headers) != 3 || dataset.Headers[0] != "Name" {
		t.Fatalf("unexpected headers: %v", dataset.Headers)
	}
	if dataset.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", dataset.RowCount())
	}
	if dataset.Rows[0]["Email"] != "alice@example.com" {
		t.Fatalf("unexpected row: %v", dataset.Rows[0])
	}
	if dataset.Rows[1]["Phone"] != "" {
		t.Fatalf("missing cell should decode as empty string, got %q", dataset.Rows[1]["Phone"])
	}
}

func TestDecodeCSVStripsBOM(t *testing.T) {
	input := "\uFEFFName,Email\nAlice,alice@example.com\n"
	dataset, err := Decode(strings.NewReader(input), "contacts.csv")
	if err != nil {
		t.Fatalf("decode csv failed: %v", err)
	}
	if dataset.Headers[0] != "Name" {
		t.Fatalf("BOM not stripped from header: %q", dataset.Headers[0])
	}
}

func TestDecodeCSVSkipsBlankRowsAndColumns(t *testing.T) {
	input := "Name,,Email\n\nAlice,ignored,alice@example.com\n , , \nBob,x,bob@example.com\n"
	dataset, err := Decode(strings.NewReader(input), "contacts.csv")
	if err != nil {
		t.Fatalf("decode csv failed: %v", err)
	}
	if len(dataset.Headers) != 2 {
		t.Fatalf("blank header column should be dropped: %v", dataset.Headers)
	}
	if dataset.RowCount() != 2 {
		t.Fatalf("blank rows should be skipped, got %d rows", dataset.RowCount())
	}
	if _, ok := dataset.Rows[0]["ignored"]; ok {
		t.Fatalf("values under blank headers must not leak into rows")
	}
}

func TestDecodeCSVShortRow(t *testing.T) {
	input := "Name,Email,Phone\nAlice\n"
	dataset, err := Decode(strings.NewReader(input), "contacts.csv")
	if err != nil {
		t.Fatalf("decode csv failed: %v", err)
	}
	if dataset.Rows[0]["Name"] != "Alice" || dataset.Rows[0]["Phone"] != "" {
		t.Fatalf("short row should pad missing columns: %v", dataset.Rows[0])
	}
}

func TestDecodeCSVEmpty(t *testing.T) {
	cases := map[string]string{
		"no content":   "",
		"header only":  "Name,Email\n",
		"blank header": " , \nAlice,alice@example.com\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(input), "contacts.csv")
			if !errors.Is(err, ErrEmptyDataset) {
				t.Fatalf("expected ErrEmptyDataset, got %v", err)
			}
		})
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	_, err := Decode(strings.NewReader("whatever"), "contacts.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"Name", "Email"},
		{"Alice", "alice@example.com"},
		{"Bob", "bob@example.com"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("build cell name failed: %v", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write sheet row failed: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("serialize workbook failed: %v", err)
	}

	dataset, err := Decode(bytes.NewReader(buf.Bytes()), "contacts.xlsx")
	if err != nil {
		t.Fatalf("decode xlsx failed: %v", err)
	}
	if len(dataset.Headers) != 2 || dataset.RowCount() != 2 {
		t.Fatalf("unexpected dataset: headers=%v rows=%d", dataset.Headers, dataset.RowCount())
	}
	if dataset.Rows[1]["Name"] != "Bob" {
		t.Fatalf("unexpected row: %v", dataset.Rows[1])
	}
}

func TestDecodeXLSBadPayload(t *testing.T) {
	_, err := Decode(strings.NewReader("not a workbook"), "contacts.xls")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for bad workbook, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	input := "Name\nA\nB\nC\n"
	dataset, err := Decode(strings.NewReader(input), "contacts.csv")
	if err != nil {
		t.Fatalf("decode csv failed: %v", err)
	}
	if got := dataset.Preview(2); len(got) != 2 || got[1]["Name"] != "B" {
		t.Fatalf("unexpected preview: %v", got)
	}
	if got := dataset.Preview(10); len(got) != 3 {
		t.Fatalf("preview beyond row count should clamp, got %d", len(got))
	}
	if got := dataset.Preview(0); len(got) != 0 {
		t.Fatalf("zero preview should be empty, got %d", len(got))
	}
}
