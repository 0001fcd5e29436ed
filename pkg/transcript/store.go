package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "roundtable.transcript"

// Store manages transcript files in a directory
type Store struct {
	dir        string
	logger     zerolog.Logger
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// New creates a Store rooted at dir, creating it if needed
func New(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("transcript directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	return &Store{
		dir:        dir,
		logger:     logger,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

func validateMeetingID(id string) error {
	if id == "" {
		return fmt.Errorf("meeting id cannot be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("meeting id cannot contain '..'")
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("meeting id contains invalid characters")
	}
	return nil
}

func (s *Store) path(meetingID string) string {
	return filepath.Join(s.dir, meetingID+".jsonl")
}

func (s *Store) writeLock(meetingID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.writeLocks[meetingID]
	if !ok {
		lock = &sync.Mutex{}
		s.writeLocks[meetingID] = lock
	}
	return lock
}

// Append writes entries to the meeting's transcript in order
func (s *Store) Append(ctx context.Context, meetingID string, entries ...Entry) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "transcript.append",
		attribute.Int("entries", len(entries)),
	)
	defer span.End()

	if err := validateMeetingID(meetingID); err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	lock := s.writeLock(meetingID)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(s.path(meetingID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range entries {
		if entry.MeetingID == "" {
			entry.MeetingID = meetingID
		}
		data, err := json.Marshal(entry)
		if err != nil {
			tracing.RecordError(span, err)
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := file.Sync(); err != nil {
		tracing.RecordError(span, err)
		return fmt.Errorf("failed to sync transcript: %w", err)
	}

	logger := tracing.LoggerFromContext(ctx, s.logger)
	logger.Debug().
		Str("meeting_id", meetingID).
		Int("entries", len(entries)).
		Msg("Transcript appended")
	return nil
}

// Load reads a meeting's transcript. A missing transcript is empty.
func (s *Store) Load(ctx context.Context, meetingID string) ([]Entry, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "transcript.load")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)

	if err := validateMeetingID(meetingID); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	file, err := os.Open(s.path(meetingID))
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			logger.Warn().Str("meeting_id", meetingID).Int("line", lineNum).Err(err).Msg("Failed to parse line, skipping")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	return entries, nil
}

// List returns the IDs of stored meetings, sorted
func (s *Store) List() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}

	var ids []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a meeting's transcript
func (s *Store) Delete(meetingID string) error {
	if err := validateMeetingID(meetingID); err != nil {
		return err
	}

	lock := s.writeLock(meetingID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.path(meetingID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	s.locksMu.Lock()
	delete(s.writeLocks, meetingID)
	s.locksMu.Unlock()
	return nil
}
