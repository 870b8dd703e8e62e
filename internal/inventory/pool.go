package inventory

import (
	"errors"
	"sort"
	"strconv"
	"sync"
)

// ErrInsufficient is returned by Assign when the pool does not hold
// enough free seats for the request.
var ErrInsufficient = errors.New("not enough free seats")

// Pool holds the free seat identifiers for one train and travel class.
// Seats are numbered 1..capacity and handed out lowest-first, so
// repeated assignments from the same state are reproducible.
type Pool struct {
	mu       sync.Mutex
	free     []int // sorted ascending
	capacity int
}

// NewPool creates a pool with all of seats 1..capacity free
func NewPool(capacity int) *Pool {
	free := make([]int, capacity)
	for i := range free {
		free[i] = i + 1
	}
	return &Pool{free: free, capacity: capacity}
}

// Capacity returns the configured seat count
func (p *Pool) Capacity() int {
	return p.capacity
}

// Free returns the number of currently unassigned seats
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Assign removes the count lowest-numbered free seats and returns their
// identifiers. If fewer than count seats are free the pool is left
// unchanged and ErrInsufficient is returned. The removal and return are
// one atomic step relative to other Assign/Release calls.
func (p *Pool) Assign(count int) ([]string, error) {
	if count < 1 {
		return nil, errors.New("seat count must be at least 1")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) < count {
		return nil, ErrInsufficient
	}

	assigned := make([]string, count)
	for i := 0; i < count; i++ {
		assigned[i] = strconv.Itoa(p.free[i])
	}
	p.free = p.free[count:]

	return assigned, nil
}

// Release returns the given seat identifiers to the free set.
// Membership is set-based: releasing a seat that is already free is a
// no-op, and identifiers that do not parse as seat numbers are ignored.
// The pool trusts callers to only hand back identifiers it issued.
func (p *Pool) Release(seats []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range seats {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		idx := sort.SearchInts(p.free, n)
		if idx < len(p.free) && p.free[idx] == n {
			continue // already free
		}
		p.free = append(p.free, 0)
		copy(p.free[idx+1:], p.free[idx:])
		p.free[idx] = n
	}
}
