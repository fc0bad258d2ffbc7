// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "sort"

// IDSet is a set of row ids for one entity type. Adding an id twice is a
// no-op, so ids reached through several paths are deleted once.
type IDSet map[int64]struct{}

// NewIDSet returns a set holding ids
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts ids and reports how many were new
func (s IDSet) Add(ids ...int64) int {
	added := 0
	for _, id := range ids {
		if _, ok := s[id]; ok {
			continue
		}
		s[id] = struct{}{}
		added++
	}
	return added
}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Arena keeps one IDSet per entity type
type Arena map[EntityType]IDSet

// Set returns the set for t, creating it on first use
func (a Arena) Set(t EntityType) IDSet {
	s, ok := a[t]
	if !ok {
		s = NewIDSet()
		a[t] = s
	}
	return s
}
