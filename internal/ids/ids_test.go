package ids

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "product_ids.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCSV(t, "id,name\n101,first\n102,second\n103,third\n")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"101", "102", "103"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v in file order", got, want)
	}
}

func TestLoad_IDColumnNotFirst(t *testing.T) {
	path := writeCSV(t, "name,id\nfirst,101\nsecond,102\n")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"101", "102"}) {
		t.Errorf("Load() = %v, want [101 102]", got)
	}
}

func TestLoad_SkipsEmptyCells(t *testing.T) {
	path := writeCSV(t, "id\n101\n\n102\n")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"101", "102"}) {
		t.Errorf("Load() = %v, want empty rows skipped", got)
	}
}

func TestLoad_MissingIDColumn(t *testing.T) {
	path := writeCSV(t, "sku,name\nabc,first\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() without id column = nil error, want error")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	if _, err := Load(path); err == nil {
		t.Error("Load() on empty file = nil error, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Load() on missing file = nil error, want error")
	}
}
