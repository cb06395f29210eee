// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package util

// OrderedSet is a set of comparable items which remembers the order in which
// items were first inserted.  Iteration always follows that order, which makes
// it suitable wherever output must be deterministic but a plain map would
// otherwise be used.
type OrderedSet[T comparable] struct {
	// Maps items to their position in the items array.
	index map[T]int
	// Items in order of insertion.  Removed items leave a tombstone.
	items []T
	// Liveness of each slot in items.
	live []bool
	// Number of live items.
	size int
	// No live item precedes this position.
	head int
}

// NewOrderedSet constructs an initially empty set.
func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{index: make(map[T]int)}
}

// Len returns the number of items in this set.
func (p *OrderedSet[T]) Len() int {
	return p.size
}

// IsEmpty checks whether or not this set contains any items.
func (p *OrderedSet[T]) IsEmpty() bool {
	return p.size == 0
}

// Contains checks whether a given item is in this set.
func (p *OrderedSet[T]) Contains(item T) bool {
	_, ok := p.index[item]
	return ok
}

// Insert an item into this set, returning true if it was not already present.
func (p *OrderedSet[T]) Insert(item T) bool {
	if _, ok := p.index[item]; ok {
		return false
	}
	//
	p.index[item] = len(p.items)
	p.items = append(p.items, item)
	p.live = append(p.live, true)
	p.size++
	//
	return true
}

// Remove an item from this set, returning true if it was present.
func (p *OrderedSet[T]) Remove(item T) bool {
	i, ok := p.index[item]
	if !ok {
		return false
	}
	//
	delete(p.index, item)
	p.live[i] = false
	p.size--
	// Compact once tombstones dominate.
	if p.size < len(p.items)/2 {
		p.compact()
	}
	//
	return true
}

// PopFirst removes and returns the oldest item of this set.  This panics if the
// set is empty.
func (p *OrderedSet[T]) PopFirst() T {
	for i := p.head; i < len(p.items); i++ {
		if p.live[i] {
			item := p.items[i]
			p.head = i + 1
			p.Remove(item)
			//
			return item
		}
	}
	//
	panic("cannot pop from empty set")
}

// Items returns the live items of this set in insertion order.
func (p *OrderedSet[T]) Items() []T {
	items := make([]T, 0, p.size)
	//
	for i, item := range p.items {
		if p.live[i] {
			items = append(items, item)
		}
	}
	//
	return items
}

func (p *OrderedSet[T]) compact() {
	items := p.Items()
	p.items = items
	p.live = make([]bool, len(items))
	p.head = 0
	//
	for i, item := range items {
		p.index[item] = i
		p.live[i] = true
	}
}
