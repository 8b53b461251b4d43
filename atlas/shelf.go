// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

// ShelfAllocator packs rectangles into horizontal shelves.
//
// Each shelf is as tall as the tallest item placed on it. Items are placed
// left to right until a shelf runs out of width, then a new shelf is opened
// below. Freed space is reused at shelf granularity: once every item on a
// shelf has been deallocated the shelf is emptied, and trailing empty
// shelves are dropped so their height becomes available again.
type ShelfAllocator struct {
	width   int
	height  int
	padding int
	shelves []shelf

	usedArea int
}

type shelf struct {
	y      int // top edge
	height int // tallest item so far
	x      int // next free x
	live   int // items currently allocated
}

// NewShelfAllocator creates an allocator for a width x height area.
func NewShelfAllocator(width, height, padding int) *ShelfAllocator {
	return &ShelfAllocator{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]shelf, 0, 16),
	}
}

// Allocate finds space for a w x h rectangle.
// Returns the top-left corner and true, or -1, -1, false if it does not fit.
func (a *ShelfAllocator) Allocate(w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 {
		return -1, -1, false
	}
	paddedW := w + a.padding
	paddedH := h + a.padding

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.x+paddedW > a.width {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow, and only into free space below.
			if i != len(a.shelves)-1 || s.y+paddedH > a.height {
				continue
			}
			s.height = h
		}
		x, y = s.x, s.y
		s.x += paddedW
		s.live++
		a.usedArea += w * h
		return x, y, true
	}

	newY := 0
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		newY = last.y + last.height + a.padding
	}
	if paddedW > a.width || newY+paddedH > a.height {
		return -1, -1, false
	}
	a.shelves = append(a.shelves, shelf{y: newY, height: h, x: paddedW, live: 1})
	a.usedArea += w * h
	return 0, newY, true
}

// Deallocate frees a rectangle previously returned by Allocate.
// It reports false if no shelf holds live items at y.
func (a *ShelfAllocator) Deallocate(x, y, w, h int) bool {
	for i := range a.shelves {
		s := &a.shelves[i]
		if s.y != y || s.live == 0 || x >= s.x {
			continue
		}
		s.live--
		a.usedArea -= w * h
		if s.live == 0 {
			s.x = 0
			a.trim()
		}
		return true
	}
	return false
}

// trim drops empty shelves from the end.
func (a *ShelfAllocator) trim() {
	n := len(a.shelves)
	for n > 0 && a.shelves[n-1].live == 0 {
		n--
	}
	a.shelves = a.shelves[:n]
}

// Reset clears all allocations.
func (a *ShelfAllocator) Reset() {
	a.shelves = a.shelves[:0]
	a.usedArea = 0
}

// Utilization returns the fraction of the area in use (0.0 to 1.0).
func (a *ShelfAllocator) Utilization() float64 {
	if a.width <= 0 || a.height <= 0 {
		return 0
	}
	return float64(a.usedArea) / float64(a.width*a.height)
}

// UsedArea returns the total area of live allocations.
func (a *ShelfAllocator) UsedArea() int { return a.usedArea }

// ShelfCount returns the number of shelves in use.
func (a *ShelfAllocator) ShelfCount() int { return len(a.shelves) }

// CanFit reports whether a w x h rectangle could fit in an empty allocator.
func (a *ShelfAllocator) CanFit(w, h int) bool {
	return w > 0 && h > 0 && w+a.padding <= a.width && h+a.padding <= a.height
}
