package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one line written by the zap console encoder:
// time, level, caller, message and JSON fields separated by tabs.
type Entry struct {
	Time    string
	Level   zapcore.Level
	Caller  string
	Message string
	Fields  string
	// Raw is set when the line did not look like an encoder line.
	Raw string
}

// Parse splits a console encoder line. Continuation lines such as stack
// traces come back with only Raw set and InvalidLevel.
func Parse(line string) Entry {
	parts := strings.SplitN(line, "\t", 5)
	if len(parts) < 3 {
		return Entry{Raw: line, Level: zapcore.InvalidLevel}
	}
	level, err := zapcore.ParseLevel(strings.ToLower(parts[1]))
	if err != nil {
		return Entry{Raw: line, Level: zapcore.InvalidLevel}
	}
	e := Entry{Time: parts[0], Level: level}
	switch len(parts) {
	case 3:
		e.Message = parts[2]
	case 4:
		e.Caller, e.Message = parts[2], parts[3]
	default:
		e.Caller, e.Message, e.Fields = parts[2], parts[3], parts[4]
	}
	return e
}

// FilterLevel keeps lines at or above min. Continuation lines follow the
// verdict of the entry they belong to.
func FilterLevel(lines []string, min zapcore.Level) []string {
	var out []string
	keep := false
	for _, line := range lines {
		e := Parse(line)
		if e.Level != zapcore.InvalidLevel {
			keep = e.Level >= min
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}
