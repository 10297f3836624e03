package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// File is a Store persisting each session as one JSON document on disk.
// Writes go through a temp-file rename so a crash mid-write leaves either
// the previous document or the new one, never a torn file. Suitable for
// single-node deployments; the engine's retry layer handles transient
// filesystem errors.
type File struct {
	mu       sync.Mutex
	dir      string
	logger   zerolog.Logger
	sessions map[string]*sessionDocument
}

// sessionDocument is the on-disk shape: the record plus its draw history
// and win, kept together so a session is one self-contained file.
type sessionDocument struct {
	Record SessionRecord `json:"record"`
	Draws  []int         `json:"draws"`
	Win    *WinRecord    `json:"win,omitempty"`
}

// NewFile opens (or creates) a file store rooted at dir, loading any
// sessions persisted by a previous run.
func NewFile(logger zerolog.Logger, dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	f := &File{
		dir:      dir,
		logger:   logger.With().Str("component", "store").Str("dir", dir).Logger(),
		sessions: make(map[string]*sessionDocument),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc sessionDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			f.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable session file")
			continue
		}
		f.sessions[doc.Record.ID] = &doc
	}
	f.logger.Info().Int("sessions", len(f.sessions)).Msg("store opened")
	return f, nil
}

// SaveSession upserts the record and flushes the session document.
func (f *File) SaveSession(ctx context.Context, rec SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.docLocked(rec.ID)
	doc.Record = rec
	return f.flushLocked(rec.ID)
}

// AppendDraw records a draw under the same sequence rules as Memory: a
// retried write of the last draw is accepted, anything else out of order
// is rejected.
func (f *File) AppendDraw(ctx context.Context, sessionID string, number, seq int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.docLocked(sessionID)
	if seq == len(doc.Draws) && len(doc.Draws) > 0 && doc.Draws[len(doc.Draws)-1] == number {
		return nil
	}
	if seq != len(doc.Draws)+1 {
		return fmt.Errorf("append draw for %s: expected seq %d, got %d", sessionID, len(doc.Draws)+1, seq)
	}
	doc.Draws = append(doc.Draws, number)
	return f.flushLocked(sessionID)
}

// SaveWin records the win exactly once.
func (f *File) SaveWin(ctx context.Context, rec WinRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.docLocked(rec.SessionID)
	if doc.Win != nil {
		return fmt.Errorf("win for session %s already recorded", rec.SessionID)
	}
	doc.Win = &rec
	return f.flushLocked(rec.SessionID)
}

// Session reads back a stored record.
func (f *File) Session(id string) (SessionRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.sessions[id]
	if !ok {
		return SessionRecord{}, false
	}
	return doc.Record, true
}

// Draws reads back the ordered draw history for a session.
func (f *File) Draws(sessionID string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]int, len(doc.Draws))
	copy(out, doc.Draws)
	return out
}

// Sessions lists every stored record, in no particular order. Callers own
// validating what a previous run (or a hand-edited file) left behind.
func (f *File) Sessions() []SessionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SessionRecord, 0, len(f.sessions))
	for _, doc := range f.sessions {
		out = append(out, doc.Record)
	}
	return out
}

// Win reads back the win record for a session.
func (f *File) Win(sessionID string) (WinRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.sessions[sessionID]
	if !ok || doc.Win == nil {
		return WinRecord{}, false
	}
	return *doc.Win, true
}

func (f *File) docLocked(id string) *sessionDocument {
	doc, ok := f.sessions[id]
	if !ok {
		doc = &sessionDocument{Record: SessionRecord{ID: id}}
		f.sessions[id] = doc
	}
	return doc
}

// flushLocked writes the session document atomically: write to a temp file
// in the same directory, sync, then rename over the target. Readers see the
// old document or the new one, never a partial write.
func (f *File) flushLocked(id string) error {
	doc := f.sessions[id]
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	target := filepath.Join(f.dir, id+".json")
	tmp, err := os.CreateTemp(f.dir, id+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
