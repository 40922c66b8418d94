// ABOUTME: Local canned-response resolver used when the chat backend is absent
// ABOUTME: Matches user text against an ordered corpus by bidirectional containment

package resolver

import (
	"fmt"
	"strings"
)

// Entry pairs a canonical prompt with its pre-authored answer
type Entry struct {
	Key    string
	Answer string
}

// Resolver answers user text from a fixed, ordered corpus. It performs no
// I/O and is safe for concurrent use.
type Resolver struct {
	corpus []Entry
}

// New creates a Resolver over the built-in corpus.
func New() *Resolver {
	return NewWithCorpus(defaultCorpus)
}

// NewWithCorpus creates a Resolver over the given entries. Order matters:
// the first matching entry wins.
func NewWithCorpus(corpus []Entry) *Resolver {
	entries := make([]Entry, len(corpus))
	copy(entries, corpus)
	return &Resolver{corpus: entries}
}

// Resolve returns the answer for message. An entry matches when either its
// key contains message or message contains its key. With no match the
// generic reply echoing message is returned.
func (r *Resolver) Resolve(message string) string {
	for _, e := range r.corpus {
		if strings.Contains(message, e.Key) || strings.Contains(e.Key, message) {
			return e.Answer
		}
	}
	return Generic(message)
}

// Keys returns the corpus keys in match order.
func (r *Resolver) Keys() []string {
	keys := make([]string, len(r.corpus))
	for i, e := range r.corpus {
		keys[i] = e.Key
	}
	return keys
}

// Generic returns the templated reply for text no corpus entry matches.
func Generic(message string) string {
	return fmt.Sprintf(genericTemplate, message)
}
