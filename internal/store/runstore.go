package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// RunDocument is one finished generation run: the final document plus
// whatever validation problems shipped with it.
type RunDocument struct {
	RunID     string    `json:"run_id"`
	Title     string    `json:"title"`
	Document  string    `json:"document"`
	Problems  []string  `json:"problems,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStore keeps finished documents by run id: Postgres when a DSN is
// configured, a JSON file otherwise. Reads go through an LRU cache in
// Postgres mode.
type RunStore struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]RunDocument

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, RunDocument]
}

func NewRunStore(path string) *RunStore {
	return &RunStore{
		path: path,
		byID: make(map[string]RunDocument),
	}
}

func NewPostgresRunStore(dsn string) (*RunStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, RunDocument](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RunStore{db: db, cache: cache}, nil
}

// NewRunStoreFromEnv prefers Postgres via RUN_STORE_PG_DSN and falls back
// to the file store at path.
func NewRunStoreFromEnv(path string) *RunStore {
	dsn := strings.TrimSpace(os.Getenv("RUN_STORE_PG_DSN"))
	if dsn == "" {
		return NewRunStore(path)
	}
	s, err := NewPostgresRunStore(dsn)
	if err != nil {
		return NewRunStore(path)
	}
	return s
}

func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *RunStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
			CREATE TABLE IF NOT EXISTS run_documents (
				run_id     TEXT PRIMARY KEY,
				title      TEXT NOT NULL DEFAULT '',
				document   TEXT NOT NULL DEFAULT '',
				problems   TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`)
	})
	return s.schemaErr
}

func (s *RunStore) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var docs []RunDocument
		if err := json.Unmarshal(b, &docs); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, d := range docs {
			s.byID[d.RunID] = d
		}
	})
}

// Save stores one finished run.
func (s *RunStore) Save(doc RunDocument) error {
	if s == nil {
		return fmt.Errorf("run store is nil")
	}
	if strings.TrimSpace(doc.RunID) == "" {
		return fmt.Errorf("run id is required")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if s.db != nil {
		if err := s.ensureSchema(); err != nil {
			return err
		}
		problems, _ := json.Marshal(doc.Problems)
		_, err := s.db.Exec(`
			INSERT INTO run_documents (run_id, title, document, problems, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id) DO UPDATE
			SET title = EXCLUDED.title, document = EXCLUDED.document,
			    problems = EXCLUDED.problems`,
			doc.RunID, doc.Title, doc.Document, string(problems), doc.CreatedAt)
		if err != nil {
			return err
		}
		s.cache.Add(doc.RunID, doc)
		return nil
	}

	s.ensureLoadedFile()
	s.mu.Lock()
	s.byID[doc.RunID] = doc
	docs := make([]RunDocument, 0, len(s.byID))
	for _, d := range s.byID {
		docs = append(docs, d)
	}
	s.mu.Unlock()

	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, b, 0o644)
}

// Get returns one finished run by id.
func (s *RunStore) Get(runID string) (RunDocument, bool) {
	if s == nil {
		return RunDocument{}, false
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return RunDocument{}, false
	}

	if s.db != nil {
		if doc, ok := s.cache.Get(runID); ok {
			return doc, true
		}
		if err := s.ensureSchema(); err != nil {
			return RunDocument{}, false
		}
		var doc RunDocument
		var problems string
		err := s.db.QueryRow(`
			SELECT run_id, title, document, problems, created_at
			FROM run_documents WHERE run_id = $1`, runID).
			Scan(&doc.RunID, &doc.Title, &doc.Document, &problems, &doc.CreatedAt)
		if err != nil {
			return RunDocument{}, false
		}
		_ = json.Unmarshal([]byte(problems), &doc.Problems)
		s.cache.Add(runID, doc)
		return doc, true
	}

	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[runID]
	return doc, ok
}
