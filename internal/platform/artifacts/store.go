// Package artifacts persists criteria, SQL, and funnel bundles as JSON files
// for versioning and audit.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Load for an unknown artifact id.
var ErrNotFound = errors.New("artifact not found")

// Artifact types.
const (
	TypeBundle      = "bundle"
	TypeCriteriaDSL = "criteria_dsl"
	TypeSQL         = "sql"
	TypeFunnel      = "funnel"
)

// Metadata is the listing entry for one stored artifact.
type Metadata struct {
	ArtifactID string `json:"artifact_id"`
	Name       string `json:"name"`
	Type       string `json:"artifact_type"`
	Timestamp  string `json:"timestamp"`
	FilePath   string `json:"file_path"`
}

// Artifact is a stored bundle with its envelope.
type Artifact struct {
	ArtifactID string          `json:"artifact_id"`
	Type       string          `json:"artifact_type"`
	Name       string          `json:"name"`
	Timestamp  string          `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// Store writes artifacts to a flat directory, one JSON file per artifact.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Save persists payload under a timestamped id derived from name.
func (s *Store) Save(name string, payload any, artifactType string) (*Metadata, error) {
	if artifactType == "" {
		artifactType = TypeBundle
	}
	ts := s.now()
	artifactID := fmt.Sprintf("%s_%s", name, ts.Format("20060102_150405"))
	path := filepath.Join(s.dir, artifactID+".json")

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	envelope := Artifact{
		ArtifactID: artifactID,
		Type:       artifactType,
		Name:       name,
		Timestamp:  ts.Format(time.RFC3339),
		Data:       data,
	}
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return &Metadata{
		ArtifactID: artifactID,
		Name:       name,
		Type:       artifactType,
		Timestamp:  envelope.Timestamp,
		FilePath:   path,
	}, nil
}

// Load reads an artifact by id.
func (s *Store) Load(artifactID string) (*Artifact, error) {
	path := filepath.Join(s.dir, artifactID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// List returns artifact metadata, newest first, optionally filtered by type.
// Files that fail to decode are skipped.
func (s *Store) List(artifactType string) ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifacts dir: %w", err)
	}

	metas := []Metadata{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var a Artifact
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		if artifactType != "" && a.Type != artifactType {
			continue
		}
		metas = append(metas, Metadata{
			ArtifactID: a.ArtifactID,
			Name:       a.Name,
			Type:       a.Type,
			Timestamp:  a.Timestamp,
			FilePath:   path,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Timestamp > metas[j].Timestamp
	})
	return metas, nil
}
