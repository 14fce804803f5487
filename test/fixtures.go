package test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mickamy/qprof/internal/model"
	"github.com/mickamy/qprof/internal/parser"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves a path relative to the repository rootPath (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// SamplePath returns the absolute path of a file under samples/.
func SamplePath(t *testing.T, rel string) string {
	t.Helper()
	return filepath.Join(RootPath(t), "samples", rel)
}

// ReadSample returns the contents of a file under samples/.
func ReadSample(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(SamplePath(t, rel))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return string(data)
}

// LoadSampleRow decodes a telemetry row stored as {"columns": [...], "values": [...]}.
// Numbers decode as json.Number, the way a driver hands back NUMBER columns as text.
func LoadSampleRow(t *testing.T, rel string) *model.RawRow {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(ReadSample(t, rel))))
	dec.UseNumber()
	var row model.RawRow
	if err := dec.Decode(&row); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	return &row
}

// FullRecord normalizes the account usage sample row.
func FullRecord(t *testing.T) *model.Record {
	t.Helper()
	return normalizeSample(t, "account_usage_row.json", model.StoreFull)
}

// FastRecord normalizes the information schema sample row.
func FastRecord(t *testing.T) *model.Record {
	t.Helper()
	return normalizeSample(t, "information_schema_row.json", model.StoreFast)
}

func normalizeSample(t *testing.T, rel string, store model.Store) *model.Record {
	t.Helper()
	rec, err := parser.NormalizeRow(LoadSampleRow(t, rel), store)
	if err != nil {
		t.Fatalf("normalize %s: %v", rel, err)
	}
	return rec
}
