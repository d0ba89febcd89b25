package common

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadTrackerAddresses reads tracker_info.txt: exactly two non-empty,
// non-comment lines, each "host:port". Line 1 is tracker 1, line 2 is
// tracker 2.
func ReadTrackerAddresses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("common: cannot open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) != 2 {
		return nil, fmt.Errorf("common: %s must contain exactly two tracker addresses, got %d", path, len(lines))
	}
	return lines, nil
}

// SyncPort returns the replication port for a tracker listening on
// controlPort: always controlPort + 100.
func SyncPort(controlPort int) int {
	return controlPort + 100
}

// StatusPort returns the read-only HTTP diagnostic port for a tracker
// listening on controlPort: controlPort + 200.
func StatusPort(controlPort int) int {
	return controlPort + 200
}
