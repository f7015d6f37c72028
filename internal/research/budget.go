package research

import (
	"sync"
	"sync/atomic"
)

// Budget is the run-wide tool-call counter shared by all workers
type Budget struct {
	limit     int64
	remaining atomic.Int64
}

// NewBudget creates a budget of n calls
func NewBudget(n int) *Budget {
	b := &Budget{limit: int64(n)}
	b.remaining.Store(int64(n))
	return b
}

// TryConsume takes one call from the budget, reporting false when it is spent
func (b *Budget) TryConsume() bool {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the calls left
func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}

// Used returns the calls consumed so far
func (b *Budget) Used() int {
	return int(b.limit - b.remaining.Load())
}

// Allowance bounds the tool calls of one question: its tier quota and the
// shared run budget. Safe for concurrent use by a question's scrapes.
type Allowance struct {
	mu     sync.Mutex
	quota  int
	used   int
	budget *Budget // nil = quota only
	denied bool    // the run budget refused a call
}

// NewAllowance creates an allowance of quota calls drawn from budget
func NewAllowance(quota int, budget *Budget) *Allowance {
	return &Allowance{quota: quota, budget: budget}
}

// Take consumes one call, reporting false when the quota or budget is spent
func (a *Allowance) Take() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used >= a.quota {
		return false
	}
	if a.budget != nil && !a.budget.TryConsume() {
		a.denied = true
		return false
	}
	a.used++
	return true
}

// Used returns the calls consumed
func (a *Allowance) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// BudgetDenied reports whether the run budget ran out under this question
func (a *Allowance) BudgetDenied() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.denied
}
