package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"powersearch/models"
)

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "raw.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	listings := []models.Listing{
		{Site: "amazon", ID: "a1", Title: "Acme X100", Price: models.Float(18), Currency: "USD", URL: "https://a.example/1", InStock: true},
		{Site: "ebay", ID: "e1", Title: "Acme X100, new", ReviewCount: models.Int(12), FreeShipping: true, URL: "https://e.example/1"},
	}
	if err := w.WriteRaw(listings); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	if rows[0][0] != "site" || len(rows[0]) != len(csvHeader) {
		t.Errorf("header: got %v", rows[0])
	}
	if rows[1][3] != "18" || rows[1][10] != "true" {
		t.Errorf("first row: got %v", rows[1])
	}
	if rows[2][2] != "Acme X100, new" || rows[2][3] != "" || rows[2][8] != "12" || rows[2][9] != "true" {
		t.Errorf("second row: got %v", rows[2])
	}
}

func TestSearchLogArgsMatchPlaceholders(t *testing.T) {
	args := searchLogArgs(SearchLogEntry{RequestID: "r", Query: "q", Page: 2, Limit: 20, Error: "boom"})
	if len(args) != 12 {
		t.Fatalf("args: got %d, want 12", len(args))
	}
	if args[0] != "r" || args[5] != 2 || args[11] != "boom" {
		t.Errorf("args order: got %v", args)
	}
}
