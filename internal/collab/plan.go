// Package collab implements the collaboration side: partitioning a task's
// records into per-user assignments and the assignee's draft-based editing
// workspace with its auto-save and idle timers.
package collab

import (
	"errors"
	"fmt"

	"qaproof/internal/qa"
)

// ErrNoUsers is returned when a plan has no one to assign to.
var ErrNoUsers = errors.New("no users selected")

// ErrOverAllocation is returned when a manual plan hands out more records
// than the task has.
var ErrOverAllocation = errors.New("assigned more records than the task has")

// PlanAverage partitions total records evenly across users, contiguous
// ranges in listed order. When adminID is set with adminCount > 0, the
// admin takes the leading [0, adminCount-1] range and the rest is split
// among the remaining users: base count each, the first total%n users one
// extra. Users left with zero records get no assignment.
func PlanAverage(total int, userIDs []string, adminID string, adminCount int) ([]qa.Assignment, error) {
	if len(userIDs) == 0 && (adminID == "" || adminCount <= 0) {
		return nil, ErrNoUsers
	}
	if adminCount > total {
		return nil, fmt.Errorf("admin share %d exceeds %d records", adminCount, total)
	}

	var out []qa.Assignment
	start := 0
	remaining := total
	if adminID != "" && adminCount > 0 {
		out = append(out, qa.Assignment{UserID: adminID, StartIndex: 0, EndIndex: adminCount - 1})
		start = adminCount
		remaining -= adminCount
	}

	if len(userIDs) == 0 || remaining <= 0 {
		return out, nil
	}
	base := remaining / len(userIDs)
	extra := remaining % len(userIDs)
	for i, id := range userIDs {
		count := base
		if i < extra {
			count++
		}
		if count == 0 {
			continue
		}
		out = append(out, qa.Assignment{UserID: id, StartIndex: start, EndIndex: start + count - 1})
		start += count
	}
	return out, nil
}

// ManualPlan builds a manual partition interactively. The admin enters a
// record count per user; ranges are laid out contiguously in entry order,
// so adjusting one count shifts everyone after it.
type ManualPlan struct {
	total  int
	order  []string
	counts map[string]int
}

// NewManualPlan starts an empty plan over a task of the given size.
func NewManualPlan(total int) *ManualPlan {
	return &ManualPlan{total: total, counts: map[string]int{}}
}

// SetCount sets one user's share. A zero count keeps the user in the plan
// with an empty share; negative counts are rejected.
func (p *ManualPlan) SetCount(userID string, count int) error {
	if count < 0 {
		return fmt.Errorf("negative count %d for %s", count, userID)
	}
	if _, ok := p.counts[userID]; !ok {
		p.order = append(p.order, userID)
	}
	p.counts[userID] = count
	return nil
}

// Remove drops a user from the plan, shifting later ranges down.
func (p *ManualPlan) Remove(userID string) {
	if _, ok := p.counts[userID]; !ok {
		return
	}
	delete(p.counts, userID)
	for i, id := range p.order {
		if id == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Assigned returns the number of records handed out so far.
func (p *ManualPlan) Assigned() int {
	sum := 0
	for _, c := range p.counts {
		sum += c
	}
	return sum
}

// Remaining returns how many records are still unassigned. Negative means
// the plan is over-allocated and cannot be submitted.
func (p *ManualPlan) Remaining() int {
	return p.total - p.Assigned()
}

// Valid reports whether the plan can be submitted.
func (p *ManualPlan) Valid() bool {
	return len(p.order) > 0 && p.Assigned() > 0 && p.Remaining() >= 0
}

// Assignments realizes the plan as contiguous ranges in entry order.
// Zero-count users are skipped.
func (p *ManualPlan) Assignments() ([]qa.Assignment, error) {
	if len(p.order) == 0 {
		return nil, ErrNoUsers
	}
	if p.Remaining() < 0 {
		return nil, ErrOverAllocation
	}
	var out []qa.Assignment
	start := 0
	for _, id := range p.order {
		count := p.counts[id]
		if count == 0 {
			continue
		}
		out = append(out, qa.Assignment{UserID: id, StartIndex: start, EndIndex: start + count - 1})
		start += count
	}
	if out == nil {
		return nil, ErrNoUsers
	}
	return out, nil
}

// Validate checks explicit ranges (already laid out, not count-derived):
// each inside [0, total), no two overlapping.
func Validate(total int, assignments []qa.Assignment) error {
	for i, a := range assignments {
		if a.StartIndex < 0 || a.EndIndex >= total || a.StartIndex > a.EndIndex {
			return fmt.Errorf("invalid range %d-%d for %s", a.StartIndex, a.EndIndex, a.UserID)
		}
		for _, b := range assignments[:i] {
			if a.Overlaps(b) {
				return fmt.Errorf("ranges overlap: %s and %s", a, b)
			}
		}
	}
	return nil
}
