package store

import (
	"sync"

	"canvas-cli/internal/model"
)

// State holds the single shared document reference. Every mutation is a serialized
// read-modify-replace: fn sees the latest snapshot and its return value replaces it whole.
type State struct {
	mu       sync.Mutex
	doc      model.Document
	lastGood model.Document
	hasGood  bool

	notifyMu sync.Mutex // keeps notifications in mutation order

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(model.Document)
}

func NewState(doc model.Document) *State {
	if doc.Items == nil {
		doc.Items = []model.Item{}
	}
	s := &State{doc: doc, subs: map[int]func(model.Document){}}
	if doc.IsPopulated() {
		s.lastGood = doc.Clone()
		s.hasGood = true
	}
	return s
}

// Snapshot returns a copy of the current document.
func (s *State) Snapshot() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update applies fn to the current document and installs its result.
func (s *State) Update(fn func(model.Document) model.Document) model.Document {
	s.mu.Lock()
	next := fn(s.doc)
	if next.Items == nil {
		next.Items = []model.Item{}
	}
	s.doc = next
	if next.IsPopulated() {
		s.lastGood = next
		s.hasGood = true
	}
	out := next.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(out)
	s.notifyMu.Unlock()
	return out
}

// Replace installs doc as the current document.
func (s *State) Replace(doc model.Document) {
	s.Update(func(model.Document) model.Document { return doc.Clone() })
}

// RememberGood seeds the last-known-good snapshot (e.g. from the snapshot cache)
// without touching the live document.
func (s *State) RememberGood(doc model.Document) {
	if !doc.IsPopulated() {
		return
	}
	s.mu.Lock()
	s.lastGood = doc.Clone()
	s.hasGood = true
	s.mu.Unlock()
}

// GroundingSnapshot prefers the live document and falls back to the last populated one.
func (s *State) GroundingSnapshot() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.IsPopulated() || !s.hasGood {
		return s.doc.Clone()
	}
	return s.lastGood.Clone()
}

// Subscribe registers fn to receive every new snapshot. The returned func unregisters it.
// fn must not call Update.
func (s *State) Subscribe(fn func(model.Document)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *State) notify(doc model.Document) {
	s.subMu.Lock()
	fns := make([]func(model.Document), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}
