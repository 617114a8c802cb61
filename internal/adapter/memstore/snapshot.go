package memstore

import (
	"sort"

	"codegraph/internal/domain"
)

// Entry is an indexed chunk with its lexical statistics.
type Entry struct {
	Chunk  domain.Chunk
	Terms  map[string]int
	Length int
}

// NewEntry counts term frequencies of tokens for chunk.
func NewEntry(chunk domain.Chunk, tokens []string) Entry {
	terms := make(map[string]int, len(tokens))
	for _, t := range tokens {
		terms[t]++
	}
	return Entry{Chunk: chunk, Terms: terms, Length: len(tokens)}
}

// Snapshot is an immutable view of the index. Writers derive a new snapshot
// through a Builder; readers keep whichever snapshot they started with.
type Snapshot struct {
	generation uint64
	files      map[string][]Entry
	paths      []string
	docFreq    map[string]int
	chunks     int
	totalLen   int
	contentLen int
}

func Empty() *Snapshot {
	return &Snapshot{
		files:   map[string][]Entry{},
		docFreq: map[string]int{},
	}
}

// WithFile returns a copy of s where path's entries are replaced. An empty
// entries slice removes the file. Each call copies the whole index; use Edit
// to apply many changes at once.
func (s *Snapshot) WithFile(path string, entries []Entry) *Snapshot {
	return s.Edit().Put(path, entries).Snapshot()
}

// WithoutFile is WithFile(path, nil).
func (s *Snapshot) WithoutFile(path string) *Snapshot {
	return s.WithFile(path, nil)
}

// Build creates a snapshot holding files in a single pass.
func Build(files map[string][]Entry) *Snapshot {
	b := Empty().Edit()
	for path, entries := range files {
		b.Put(path, entries)
	}
	return b.Snapshot()
}

// Builder accumulates file changes on top of a base snapshot. The base is
// copied once, on the first change, and the result is published by Snapshot.
// A Builder is not safe for concurrent use.
type Builder struct {
	base *Snapshot
	next *Snapshot
}

// Edit starts a builder on top of s. s itself is never modified.
func (s *Snapshot) Edit() *Builder {
	return &Builder{base: s}
}

func (b *Builder) draft() *Snapshot {
	if b.next != nil {
		return b.next
	}
	s := b.base
	b.next = &Snapshot{
		generation: s.generation,
		files:      make(map[string][]Entry, len(s.files)+1),
		docFreq:    make(map[string]int, len(s.docFreq)),
		chunks:     s.chunks,
		totalLen:   s.totalLen,
		contentLen: s.contentLen,
	}
	for p, es := range s.files {
		b.next.files[p] = es
	}
	for t, n := range s.docFreq {
		b.next.docFreq[t] = n
	}
	return b.next
}

// Put replaces path's entries. An empty entries slice removes the file.
func (b *Builder) Put(path string, entries []Entry) *Builder {
	next := b.draft()
	for _, e := range next.files[path] {
		next.unaccount(e)
	}
	delete(next.files, path)

	if len(entries) > 0 {
		owned := make([]Entry, len(entries))
		copy(owned, entries)
		next.files[path] = owned
		for _, e := range owned {
			next.account(e)
		}
	}
	return b
}

func (b *Builder) Remove(path string) *Builder {
	return b.Put(path, nil)
}

// Dirty reports whether changes are waiting to be published.
func (b *Builder) Dirty() bool { return b.next != nil }

// Snapshot publishes the pending changes as a new snapshot with the next
// generation. Without pending changes it returns the base unchanged. The
// builder keeps working on top of the returned snapshot.
func (b *Builder) Snapshot() *Snapshot {
	if b.next == nil {
		return b.base
	}
	next := b.next
	next.generation++
	next.paths = make([]string, 0, len(next.files))
	for p := range next.files {
		next.paths = append(next.paths, p)
	}
	sort.Strings(next.paths)

	b.base, b.next = next, nil
	return next
}

func (s *Snapshot) account(e Entry) {
	s.chunks++
	s.totalLen += e.Length
	s.contentLen += len(e.Chunk.Content)
	for t := range e.Terms {
		s.docFreq[t]++
	}
}

func (s *Snapshot) unaccount(e Entry) {
	s.chunks--
	s.totalLen -= e.Length
	s.contentLen -= len(e.Chunk.Content)
	for t := range e.Terms {
		if s.docFreq[t] <= 1 {
			delete(s.docFreq, t)
		} else {
			s.docFreq[t]--
		}
	}
}

// Generation increases with every derived snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Len is the number of chunks.
func (s *Snapshot) Len() int { return s.chunks }

func (s *Snapshot) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// File returns the entries of path in segmentation order.
func (s *Snapshot) File(path string) []Entry {
	return s.files[path]
}

// Each visits entries in path order, then segmentation order, until fn
// returns false.
func (s *Snapshot) Each(fn func(e *Entry) bool) {
	for _, p := range s.paths {
		es := s.files[p]
		for i := range es {
			if !fn(&es[i]) {
				return
			}
		}
	}
}

// DocFreq is the number of chunks containing term.
func (s *Snapshot) DocFreq(term string) int { return s.docFreq[term] }

// AvgLength is the mean token length of chunks, 0 when empty.
func (s *Snapshot) AvgLength() float64 {
	if s.chunks == 0 {
		return 0
	}
	return float64(s.totalLen) / float64(s.chunks)
}

func (s *Snapshot) Stats() domain.Stats {
	st := domain.Stats{TotalFiles: len(s.files), TotalChunks: s.chunks}
	if s.chunks > 0 {
		st.AvgChunkLen = float64(s.contentLen) / float64(s.chunks)
	}
	return st
}
