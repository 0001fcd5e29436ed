package perf

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const sessionHeader = "=== Performance Session "

// Session is one snapshot read back from a performance log
type Session struct {
	At       time.Time
	Snapshot Snapshot
}

// ReadLog parses every session appended by Save. Blocks that do not decode
// are skipped.
func ReadLog(r io.Reader) ([]Session, error) {
	var (
		sessions []Session
		current  *Session
		body     strings.Builder
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, sessionHeader):
			stamp := strings.TrimSuffix(strings.TrimPrefix(line, sessionHeader), " ===")
			at, _ := time.Parse(time.RFC3339, stamp)
			current = &Session{At: at}
			body.Reset()
		case current != nil && strings.HasPrefix(line, "=====") && strings.Trim(line, "=") == "":
			if err := json.Unmarshal([]byte(body.String()), &current.Snapshot); err == nil {
				sessions = append(sessions, *current)
			}
			current = nil
		case current != nil:
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read performance log: %w", err)
	}
	return sessions, nil
}

// ReadLogFile parses the performance log at path
func ReadLogFile(path string) ([]Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLog(f)
}
