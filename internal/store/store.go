// Package store persists the orchestration core's durable state as typed
// JSON documents, one file per concern, under a project-local hidden
// directory. Reads that fail behave like a missing record: the failure is
// logged and the caller proceeds as if nothing were persisted.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodexForgeBR/loopctl/internal/logging"
)

// Store owns the state directory for one project. Concurrent writers are not
// expected: a single host process owns each project directory.
type Store struct {
	dir string
}

// New creates a store rooted at the given state directory (e.g. ".loopctl"
// resolved against the project root). The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path of a named document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// writeDoc persists v as indented JSON under the given file name.
func (s *Store) writeDoc(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.Path(name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// readDoc loads the named document into v. Returns false when the document
// is absent or unreadable; unreadable documents are logged.
func (s *Store) readDoc(name string, v any) bool {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn(fmt.Sprintf("read %s: %v", name, err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logging.Warn(fmt.Sprintf("parse %s: %v", name, err))
		return false
	}
	return true
}

// clearDoc removes the named document. Missing files are not an error.
func (s *Store) clearDoc(name string) {
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		logging.Warn(fmt.Sprintf("clear %s: %v", name, err))
	}
}

// LoopState returns the persisted loop state, or nil if none exists.
func (s *Store) LoopState() *LoopState {
	var ls LoopState
	if !s.readDoc(LoopStateFile, &ls) {
		return nil
	}
	return &ls
}

// SaveLoopState persists the loop state.
func (s *Store) SaveLoopState(ls *LoopState) error {
	return s.writeDoc(LoopStateFile, ls)
}

// ClearLoopState removes the persisted loop state.
func (s *Store) ClearLoopState() {
	s.clearDoc(LoopStateFile)
}

// VerificationState returns the persisted verification state, or nil.
func (s *Store) VerificationState() *VerificationState {
	var vs VerificationState
	if !s.readDoc(VerificationFile, &vs) {
		return nil
	}
	return &vs
}

// SaveVerificationState persists the verification state.
func (s *Store) SaveVerificationState(vs *VerificationState) error {
	return s.writeDoc(VerificationFile, vs)
}

// ClearVerificationState removes the persisted verification state.
func (s *Store) ClearVerificationState() {
	s.clearDoc(VerificationFile)
}

// TaskList returns the persisted story list, or nil if none exists.
func (s *Store) TaskList() *TaskList {
	var tl TaskList
	if !s.readDoc(StoriesFile, &tl) {
		return nil
	}
	return &tl
}

// SaveTaskList persists the story list.
func (s *Store) SaveTaskList(tl *TaskList) error {
	return s.writeDoc(StoriesFile, tl)
}

// ClearTaskList removes the persisted story list.
func (s *Store) ClearTaskList() {
	s.clearDoc(StoriesFile)
}

// PauseState returns the persisted pause flag, or nil.
func (s *Store) PauseState() *PauseState {
	var ps PauseState
	if !s.readDoc(PauseFile, &ps) {
		return nil
	}
	return &ps
}

// SavePauseState persists the pause flag.
func (s *Store) SavePauseState(ps *PauseState) error {
	return s.writeDoc(PauseFile, ps)
}

// ClearPauseState removes the pause flag.
func (s *Store) ClearPauseState() {
	s.clearDoc(PauseFile)
}

// UltraworkFlag returns the project-local ultrawork marker, or nil.
func (s *Store) UltraworkFlag() *UltraworkFlag {
	var uf UltraworkFlag
	if !s.readDoc(UltraworkFile, &uf) {
		return nil
	}
	return &uf
}

// SaveUltraworkFlag persists the project-local ultrawork marker, and
// optionally mirrors it under globalDir for cross-session persistence.
// The global copy is best effort.
func (s *Store) SaveUltraworkFlag(uf *UltraworkFlag, globalDir string) error {
	if err := s.writeDoc(UltraworkFile, uf); err != nil {
		return err
	}
	if globalDir != "" {
		g := New(globalDir)
		if err := g.writeDoc(UltraworkFile, uf); err != nil {
			logging.Warn(fmt.Sprintf("global ultrawork copy: %v", err))
		}
	}
	return nil
}

// ClearUltraworkFlag removes the project-local marker and, when globalDir is
// non-empty, the global copy.
func (s *Store) ClearUltraworkFlag(globalDir string) {
	s.clearDoc(UltraworkFile)
	if globalDir != "" {
		New(globalDir).clearDoc(UltraworkFile)
	}
}
