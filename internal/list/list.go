// Package list implements the intrusive-feeling doubly-linked list used
// throughout the kernel core for run queues, wait queues, and IPC waiter
// lists. It wraps the standard container/list the same way the teacher
// kernel wraps it for its block list (biscuit's fs.BlkList_t): callers get
// a typed, O(1) insert/remove/splice primitive without reimplementing a
// linked list by hand.
package list

import "container/list"

// List is a doubly-linked circular list of values of type T. The zero
// value is not usable; construct with New.
type List[T any] struct {
	l *list.List
}

// Node is an opaque handle to a previously inserted element, usable for
// O(1) removal regardless of how many other elements have since been
// inserted or removed.
type Node[T any] struct {
	e *list.Element
}

// New returns an empty list.
func New[T any]() *List[T] {
	return &List[T]{l: list.New()}
}

// Len returns the number of elements in the list.
func (q *List[T]) Len() int {
	return q.l.Len()
}

// PushBack appends v to the tail and returns its node handle.
func (q *List[T]) PushBack(v T) *Node[T] {
	return &Node[T]{e: q.l.PushBack(v)}
}

// PushFront prepends v to the head and returns its node handle.
func (q *List[T]) PushFront(v T) *Node[T] {
	return &Node[T]{e: q.l.PushFront(v)}
}

// InsertBefore inserts v immediately before mark and returns its handle.
func (q *List[T]) InsertBefore(v T, mark *Node[T]) *Node[T] {
	return &Node[T]{e: q.l.InsertBefore(v, mark.e)}
}

// InsertAfter inserts v immediately after mark and returns its handle.
func (q *List[T]) InsertAfter(v T, mark *Node[T]) *Node[T] {
	return &Node[T]{e: q.l.InsertAfter(v, mark.e)}
}

// Remove detaches n from the list. It is a no-op if n is nil or already
// detached. O(1).
func (q *List[T]) Remove(n *Node[T]) {
	if n == nil || n.e == nil {
		return
	}
	q.l.Remove(n.e)
	n.e = nil
}

// Value returns the value stored at n.
func (n *Node[T]) Value() T {
	return n.e.Value.(T)
}

// Front returns the first node, or nil if the list is empty.
func (q *List[T]) Front() *Node[T] {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	return &Node[T]{e: e}
}

// Next returns the node following n, or nil at the tail.
func (n *Node[T]) Next() *Node[T] {
	e := n.e.Next()
	if e == nil {
		return nil
	}
	return &Node[T]{e: e}
}

// Each calls f with the value of every element, head to tail. It is
// non-destructive: f may not remove elements from q (copy the values out
// first if mutation during iteration is required).
func (q *List[T]) Each(f func(T)) {
	for e := q.l.Front(); e != nil; e = e.Next() {
		f(e.Value.(T))
	}
}

// Splice moves every element of other onto the tail of q, in order,
// leaving other empty. It is built on container/list's PushBackList,
// which copies each element of other, so the cost is linear in
// other's length; node handles previously obtained from other do not
// refer to the copied elements in q.
func (q *List[T]) Splice(other *List[T]) {
	q.l.PushBackList(other.l)
	other.l.Init()
}

// PopFront removes and returns the first element, or the zero value and
// false if the list is empty.
func (q *List[T]) PopFront() (T, bool) {
	e := q.l.Front()
	if e == nil {
		var zero T
		return zero, false
	}
	v := e.Value.(T)
	q.l.Remove(e)
	return v, true
}
