package feeds

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadTLEFile reads a catalog file in the common three-line format (name line
// followed by the two element lines). Name lines are optional; bare two-line
// groups are accepted too.
func LoadTLEFile(path string) ([]TLE, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open TLE file: %w", err)
	}
	defer f.Close()

	var (
		out     []TLE
		pending TLE
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "1 "):
			pending.Line1 = line
		case strings.HasPrefix(line, "2 "):
			pending.Line2 = line
			if pending.Line1 == "" {
				return nil, fmt.Errorf("%w: line 2 without line 1 near %q", ErrBadTLE, line[:min(len(line), 20)])
			}
			out = append(out, pending)
			pending = TLE{}
		default:
			pending = TLE{Name: strings.TrimSpace(line)}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read TLE file: %w", err)
	}
	if pending.Line1 != "" {
		return nil, fmt.Errorf("%w: dangling line 1 at end of file", ErrBadTLE)
	}
	return out, nil
}

// SatelliteID extracts the NORAD catalog number from line 1, falling back to
// the name when the line is malformed.
func SatelliteID(t TLE) string {
	if len(t.Line1) >= 7 {
		if id := strings.TrimSpace(t.Line1[2:7]); id != "" {
			return id
		}
	}
	return t.Name
}

// AddAll registers every TLE under its catalog-number identifier and returns
// how many were accepted.
func (f *Feed) AddAll(tles []TLE) (int, error) {
	added := 0
	for _, t := range tles {
		id := SatelliteID(t)
		if id == "" {
			continue
		}
		if err := f.Add(id, t); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
