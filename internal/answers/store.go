// Package answers persists question to answer mappings between runs.
package answers

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one stored answer. Question keeps the casing of the first variant
// that was seen.
type Entry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Store is the in-memory answer set backed by a YAML file. It is not safe for
// concurrent use.
type Store struct {
	path    string
	entries map[string]*Entry
	pending map[string]struct{}
	dirty   bool
}

// New returns an empty store that flushes to path.
func New(path string) *Store {
	return &Store{
		path:    path,
		entries: map[string]*Entry{},
		pending: map[string]struct{}{},
	}
}

// Load reads the answers file at path and applies overrides on top. A missing
// file yields an empty store. Overrides that change a stored value are pending
// until the next Flush.
func Load(path string, overrides map[string]string) (*Store, error) {
	s := New(path)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read answers file %s: %w", path, err)
	default:
		if err := s.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse answers file %s: %w", path, err)
		}
	}

	keys := make([]string, 0, len(overrides))
	for q := range overrides {
		keys = append(keys, q)
	}
	sort.Strings(keys)
	for _, q := range keys {
		s.Put(q, overrides[q])
	}
	return s, nil
}

// decode walks the mapping node by node so that file order decides which
// casing wins when two keys normalize to the same question.
func (s *Store) decode(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of question to answer", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: answer for %q must be a scalar", v.Line, k.Value)
		}
		answer := v.Value
		if v.Tag == "!!bool" {
			answer = boolAnswer(v)
		}
		if answer == "" || Normalize(k.Value) == "" {
			continue
		}
		s.set(k.Value, answer)
	}
	return nil
}

func boolAnswer(n *yaml.Node) string {
	var b bool
	if err := n.Decode(&b); err != nil {
		return n.Value
	}
	if b {
		return "Yes"
	}
	return "No"
}

// set stores without marking the entry pending.
func (s *Store) set(question, answer string) *Entry {
	key := Key(question)
	if e, ok := s.entries[key]; ok {
		e.Answer = answer
		return e
	}
	e := &Entry{Question: Normalize(question), Answer: answer}
	s.entries[key] = e
	return e
}

// Path is the file the store flushes to.
func (s *Store) Path() string { return s.path }

// Get returns the stored answer for question.
func (s *Store) Get(question string) (string, bool) {
	e, ok := s.entries[Key(question)]
	if !ok {
		return "", false
	}
	return e.Answer, true
}

// Put records answer for question. The last write wins; a write that changes
// nothing is not pending. Invalid UTF-8 in the answer is replaced so the file
// stays encodable.
func (s *Store) Put(question, answer string) {
	key := Key(question)
	if key == "" {
		return
	}
	answer = strings.ToValidUTF8(answer, "\uFFFD")
	if e, ok := s.entries[key]; ok && e.Answer == answer {
		return
	}
	s.set(question, answer)
	s.pending[key] = struct{}{}
}

// Delete removes question and reports whether it was present.
func (s *Store) Delete(question string) bool {
	key := Key(question)
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	delete(s.pending, key)
	s.dirty = true
	return true
}

// Len is the number of stored answers.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns every answer sorted by question.
func (s *Store) Entries() []Entry {
	return s.sorted(func(string) bool { return true })
}

// Pending returns the answers written since the last Flush.
func (s *Store) Pending() []Entry {
	return s.sorted(func(key string) bool {
		_, ok := s.pending[key]
		return ok
	})
}

func (s *Store) sorted(keep func(key string) bool) []Entry {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		if keep(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, *s.entries[k])
	}
	return out
}

// Flush rewrites the whole file when anything changed since the last flush and
// returns how many pending answers were written. The file is replaced
// atomically.
func (s *Store) Flush() (int, error) {
	n := len(s.pending)
	if n == 0 && !s.dirty {
		return 0, nil
	}
	data, err := s.encode()
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return 0, err
	}
	s.pending = map[string]struct{}{}
	s.dirty = false
	return n, nil
}

func (s *Store) encode() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range s.Entries() {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Question},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Answer},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// defaultMode is used for a new answers file; an existing file keeps its mode.
const defaultMode fs.FileMode = 0o644

func writeFileAtomic(path string, data []byte) error {
	mode := defaultMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write answers: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode on answers: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync answers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
