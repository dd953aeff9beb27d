package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pybill/pbdash/internal/query"
)

// Exporter saves CSV documents into a directory, the terminal stand-in for a
// browser download.
type Exporter struct {
	Dir string
}

// Save writes data as CSV to <Dir>/<filename>.csv and returns the path.
func (e Exporter) Save(filename, title string, data query.QueryData) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, title, data); err != nil {
		return "", err
	}
	return e.store(filename, buf.Bytes())
}

// SaveReport is Save with report and config metadata rows.
func (e Exporter) SaveReport(filename, title string, report, config any, data query.QueryData) (string, error) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, title, report, config, data); err != nil {
		return "", err
	}
	return e.store(filename, buf.Bytes())
}

func (e Exporter) store(filename string, content []byte) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("export filename is empty")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name += ".csv"
	}

	dir := strings.TrimSpace(e.Dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, content); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func writeFileAtomic(path string, content []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err == nil {
		return nil
	}

	defer os.Remove(tmp)

	if runtime.GOOS == "windows" {
		_ = os.Remove(path)
	}
	return os.Rename(tmp, path)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.Trim(name, ". ")
}
