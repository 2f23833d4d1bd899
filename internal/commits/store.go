// internal/commits/store.go
package commits

import (
	"fmt"
	"sync"
)

// Store owns the directed version history (commits -> variants -> code) and
// the current checkout ("head"). The generation orchestrator is the only
// writer; UI-facing readers subscribe through the head observer.
type Store struct {
	mu      sync.RWMutex
	commits map[string]*Commit
	head    string // empty = no checkout

	headObservers []func(head string)
}

// Errors returned by store operations
var (
	ErrCommitExists    = fmt.Errorf("commit already exists")
	ErrCommitNotFound  = fmt.Errorf("commit not found")
	ErrVariantIndex    = fmt.Errorf("variant index out of range")
	ErrInvalidHistory  = fmt.Errorf("invalid commit history")
	ErrHeadNotResolved = fmt.Errorf("head does not reference an existing commit")
)

// NewStore creates an empty commit store
func NewStore() *Store {
	return &Store{
		commits: make(map[string]*Commit),
	}
}

// AddCommit inserts a new commit. It is an error if the hash already exists;
// commits are never silently overwritten.
func (s *Store) AddCommit(commit *Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commits[commit.Hash]; exists {
		return fmt.Errorf("%w: %s", ErrCommitExists, commit.Hash)
	}

	s.commits[commit.Hash] = commit
	return nil
}

// RemoveCommit deletes a commit. The caller is responsible for repointing
// head before or after.
func (s *Store) RemoveCommit(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commits[hash]; !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}

	delete(s.commits, hash)
	return nil
}

// Get returns a copy of the commit with the given hash
func (s *Store) Get(hash string) (*Commit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commit, ok := s.commits[hash]
	if !ok {
		return nil, false
	}
	copied := *commit
	copied.Variants = append([]Variant(nil), commit.Variants...)
	return &copied, true
}

// Head returns the current head hash, empty when no commit is checked out
func (s *Store) Head() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// SetHead points head at the given commit hash. An empty hash clears the
// checkout; a non-empty hash must reference an existing commit.
func (s *Store) SetHead(hash string) error {
	s.mu.Lock()
	if hash != "" {
		if _, exists := s.commits[hash]; !exists {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrHeadNotResolved, hash)
		}
	}
	s.head = hash
	observers := append([]func(string){}, s.headObservers...)
	s.mu.Unlock()

	for _, observer := range observers {
		observer(hash)
	}
	return nil
}

// ObserveHead registers a callback invoked after every head change
func (s *Store) ObserveHead(fn func(head string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headObservers = append(s.headObservers, fn)
}

// HeadCommit returns a copy of the commit head points at
func (s *Store) HeadCommit() (*Commit, bool) {
	head := s.Head()
	if head == "" {
		return nil, false
	}
	return s.Get(head)
}

// AppendCommitCode concatenates token onto variants[variantIndex].code.
// Token order is semantically significant; callers must apply tokens in
// arrival order.
func (s *Store) AppendCommitCode(hash string, variantIndex int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, exists := s.commits[hash]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}
	if variantIndex < 0 || variantIndex >= len(commit.Variants) {
		return fmt.Errorf("%w: %d (commit %s has %d variants)", ErrVariantIndex, variantIndex, hash, len(commit.Variants))
	}

	commit.Variants[variantIndex].Code += token
	return nil
}

// SetCommitCode replaces the variant's code wholesale. Used for the final
// snapshot, which may differ from the concatenation of streamed tokens.
func (s *Store) SetCommitCode(hash string, variantIndex int, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, exists := s.commits[hash]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}
	if variantIndex < 0 || variantIndex >= len(commit.Variants) {
		return fmt.Errorf("%w: %d", ErrVariantIndex, variantIndex)
	}

	commit.Variants[variantIndex].Code = code
	return nil
}

// UpdateVariantStatus moves a variant through its state machine. The error
// message is only stored for VariantError.
func (s *Store) UpdateVariantStatus(hash string, variantIndex int, status VariantStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, exists := s.commits[hash]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}
	if variantIndex < 0 || variantIndex >= len(commit.Variants) {
		return fmt.Errorf("%w: %d", ErrVariantIndex, variantIndex)
	}

	commit.Variants[variantIndex].Status = status
	if status == VariantError {
		commit.Variants[variantIndex].ErrorMessage = errorMessage
	} else {
		commit.Variants[variantIndex].ErrorMessage = ""
	}
	return nil
}

// ResizeVariants grows (padding with empty pending variants) or shrinks
// (dropping trailing slots) the variant list to exactly count. Slots
// 0..min(old,new)-1 are preserved untouched, including already-streamed code.
func (s *Store) ResizeVariants(hash string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, exists := s.commits[hash]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}
	if count < 0 {
		return fmt.Errorf("invalid variant count %d", count)
	}

	current := len(commit.Variants)
	switch {
	case count < current:
		commit.Variants = commit.Variants[:count]
	case count > current:
		for i := current; i < count; i++ {
			commit.Variants = append(commit.Variants, Variant{Status: VariantPending})
		}
	}

	// Keep the selection inside the new bounds
	if commit.SelectedVariantIndex >= count && count > 0 {
		commit.SelectedVariantIndex = count - 1
	}
	return nil
}

// UpdateSelectedVariantIndex changes which variant is checked out for display
func (s *Store) UpdateSelectedVariantIndex(hash string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit, exists := s.commits[hash]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}
	if index < 0 || index >= len(commit.Variants) {
		return fmt.Errorf("%w: %d", ErrVariantIndex, index)
	}

	commit.SelectedVariantIndex = index
	return nil
}

// ExtractHistory walks parent links from headHash to the root and returns the
// prompt chain in root-to-head order. A cycle or a dangling parent returns
// ErrInvalidHistory; both indicate a prior invariant violation elsewhere.
func (s *Store) ExtractHistory(headHash string) ([]PromptContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []PromptContent
	visited := make(map[string]bool)

	hash := headHash
	for hash != "" {
		if visited[hash] {
			return nil, fmt.Errorf("%w: cycle at %s", ErrInvalidHistory, hash)
		}
		visited[hash] = true

		commit, exists := s.commits[hash]
		if !exists {
			return nil, fmt.Errorf("%w: missing commit %s", ErrInvalidHistory, hash)
		}

		chain = append(chain, commit.Inputs)
		hash = commit.ParentHash
	}

	// Walked head-to-root; callers want root-to-head
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Len returns the number of commits in the store
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commits)
}

// All returns copies of every commit keyed by hash
func (s *Store) All() map[string]*Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*Commit, len(s.commits))
	for hash, commit := range s.commits {
		copied := *commit
		copied.Variants = append([]Variant(nil), commit.Variants...)
		out[hash] = &copied
	}
	return out
}

// ResetCommits clears every commit. Used on full project reset.
func (s *Store) ResetCommits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = make(map[string]*Commit)
}

// ResetHead clears the checkout
func (s *Store) ResetHead() {
	s.SetHead("")
}
