// internal/project/storage.go
package project

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"pixcode/internal/commits"
)

// Storage persists project snapshots. Variant code goes into a
// content-addressable pool shared across snapshots, so saving repeatedly
// only stores the variants that actually changed.
type Storage struct {
	baseDir          string
	compressionLevel int
	mu               sync.RWMutex
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder
}

// NewStorage creates a snapshot storage rooted at baseDir
func NewStorage(baseDir string, compressionLevel int) *Storage {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	decoder, _ := zstd.NewReader(nil)

	return &Storage{
		baseDir:          baseDir,
		compressionLevel: compressionLevel,
		encoder:          encoder,
		decoder:          decoder,
	}
}

func (s *Storage) snapshotsDir(projectID string) string {
	return filepath.Join(s.baseDir, "snapshots", projectID)
}

func (s *Storage) contentPoolDir(projectID string) string {
	return filepath.Join(s.baseDir, "snapshots", projectID, "content_pool")
}

// Save writes one snapshot of the given project state
func (s *Storage) Save(projectID, name string, state *State) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := &Snapshot{
		ID:          GenerateID(),
		ProjectID:   projectID,
		Name:        name,
		CreatedAt:   time.Now(),
		HeadHash:    state.Head,
		CommitCount: len(state.Commits),
	}

	snapshotDir := filepath.Join(s.snapshotsDir(projectID), snapshot.ID)
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	stored, err := s.poolVariantCode(projectID, state)
	if err != nil {
		return nil, err
	}

	metadataJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapshotDir, "metadata.json"), metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	stateJSON, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	compressed := s.encoder.EncodeAll(stateJSON, nil)
	if err := os.WriteFile(filepath.Join(snapshotDir, "state.zst"), compressed, 0644); err != nil {
		return nil, fmt.Errorf("write state: %w", err)
	}

	return snapshot, nil
}

// poolVariantCode moves every variant's code into the content pool and
// returns a copy of the state with code replaced by hash references.
func (s *Storage) poolVariantCode(projectID string, state *State) (*State, error) {
	poolDir := s.contentPoolDir(projectID)
	if err := os.MkdirAll(poolDir, 0755); err != nil {
		return nil, fmt.Errorf("create content pool: %w", err)
	}

	stored := &State{
		Commits:           make(map[string]*commits.Commit, len(state.Commits)),
		Head:              state.Head,
		Messages:          state.Messages,
		ExtractionResults: state.ExtractionResults,
		CodeRefs:          make(map[string]map[int]string),
	}

	for hash, commit := range state.Commits {
		copied := *commit
		copied.Variants = append(copied.Variants[:0:0], commit.Variants...)

		refs := make(map[int]string)
		for i := range copied.Variants {
			code := copied.Variants[i].Code
			if code == "" {
				continue
			}
			contentHash := CalculateHash(code)
			contentFile := filepath.Join(poolDir, contentHash)
			if _, err := os.Stat(contentFile); os.IsNotExist(err) {
				compressed := s.encoder.EncodeAll([]byte(code), nil)
				if err := os.WriteFile(contentFile, compressed, 0644); err != nil {
					return nil, fmt.Errorf("write content %s: %w", contentHash, err)
				}
			}
			refs[i] = contentHash
			copied.Variants[i].Code = ""
		}
		if len(refs) > 0 {
			stored.CodeRefs[hash] = refs
		}
		stored.Commits[hash] = &copied
	}

	return stored, nil
}

// Load reads a snapshot back into a full state, re-inflating variant code
// from the content pool.
func (s *Storage) Load(projectID, snapshotID string) (*Snapshot, *State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshotDir := filepath.Join(s.snapshotsDir(projectID), snapshotID)

	metadataJSON, err := os.ReadFile(filepath.Join(snapshotDir, "metadata.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(metadataJSON, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	compressed, err := os.ReadFile(filepath.Join(snapshotDir, "state.zst"))
	if err != nil {
		return nil, nil, fmt.Errorf("read state: %w", err)
	}
	stateJSON, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress state: %w", err)
	}

	var state State
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, nil, fmt.Errorf("unmarshal state: %w", err)
	}

	poolDir := s.contentPoolDir(projectID)
	for commitHash, refs := range state.CodeRefs {
		commit, exists := state.Commits[commitHash]
		if !exists {
			continue
		}
		for i, contentHash := range refs {
			if i < 0 || i >= len(commit.Variants) {
				continue
			}
			compressed, err := os.ReadFile(filepath.Join(poolDir, contentHash))
			if err != nil {
				return nil, nil, fmt.Errorf("read content %s: %w", contentHash, err)
			}
			code, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("decompress content %s: %w", contentHash, err)
			}
			commit.Variants[i].Code = string(code)
		}
	}
	state.CodeRefs = nil

	return &snapshot, &state, nil
}

// List lists all snapshots for a project, newest first left to the caller
func (s *Storage) List(projectID string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.snapshotsDir(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "content_pool" {
			continue
		}

		metadataJSON, err := os.ReadFile(filepath.Join(s.snapshotsDir(projectID), entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var snapshot Snapshot
		if json.Unmarshal(metadataJSON, &snapshot) == nil {
			snapshots = append(snapshots, snapshot)
		}
	}

	return snapshots, nil
}

// Delete removes one snapshot. Pooled content stays: other snapshots may
// still reference it.
func (s *Storage) Delete(projectID, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(filepath.Join(s.snapshotsDir(projectID), snapshotID))
}

// GenerateID generates a new snapshot ID
func GenerateID() string {
	return uuid.New().String()
}

// CalculateHash calculates SHA256 hash of content
func CalculateHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}
