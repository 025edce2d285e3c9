package planner

import (
	"context"
	"math"
	"sort"
	"time"
)

// assignment is a solved candidate choice for one cook slot, with the
// leftover cost of every dependent slot already folded into TotalCost.
type assignment struct {
	Candidate
	TotalCost float64
}

// solution maps cook slot index to its chosen assignment.
type solution map[int]assignment

// solver runs a deterministic best-first branch and bound over the cook
// slots. Leftover slots never branch; once a source recipe is fixed the
// best leftover multiplier per dependent is a pure lookup, so their cost
// is folded into the source candidate up front.
type solver struct {
	m    *model
	p    *Preferences
	opts Options

	order   []int
	choices [][]assignment
	minCost []float64

	deadline time.Time
	// checked every few thousand nodes to keep the clock off the hot path
	nodeBudgetTick int

	best    solution
	bestObj float64
	timedOut bool
}

func newSolver(m *model, p *Preferences, opts Options) *solver {
	s := &solver{
		m:       m,
		p:       p,
		opts:    opts,
		order:   m.cookSlots(),
		bestObj: math.Inf(1),
	}

	s.choices = make([][]assignment, len(s.order))
	s.minCost = make([]float64, len(s.order))
	for pos, slotIdx := range s.order {
		slot := m.slots[slotIdx]
		w := p.Weight(slot.MealType)

		choices := make([]assignment, 0, len(m.domains[slotIdx]))
		for _, c := range m.domains[slotIdx] {
			total := c.Deviation * w
			for _, depIdx := range m.dependents[slotIdx] {
				dep := m.slots[depIdx]
				_, d := bestLeftoverMultiplier(c.Recipe, dep.Target, opts)
				total += d * p.Weight(dep.MealType)
			}
			choices = append(choices, assignment{Candidate: c, TotalCost: total})
		}
		sort.SliceStable(choices, func(i, j int) bool {
			if choices[i].TotalCost != choices[j].TotalCost {
				return choices[i].TotalCost < choices[j].TotalCost
			}
			if choices[i].Recipe.Name != choices[j].Recipe.Name {
				return choices[i].Recipe.Name < choices[j].Recipe.Name
			}
			return choices[i].Multiplier < choices[j].Multiplier
		})
		s.choices[pos] = choices

		s.minCost[pos] = math.Inf(1)
		if len(choices) > 0 {
			s.minCost[pos] = choices[0].TotalCost
		}
	}

	// Suffix the per-slot minima into a remaining-cost lower bound.
	for pos := len(s.order) - 2; pos >= 0; pos-- {
		s.minCost[pos] += s.minCost[pos+1]
	}
	return s
}

// varietyGroupOf returns the variety group containing slotIdx, or nil.
func (s *solver) varietyGroupOf(slotIdx int) []int {
	for _, group := range s.m.varietyGroups {
		for _, member := range group {
			if member == slotIdx {
				return group
			}
		}
	}
	return nil
}

func (s *solver) violatesVariety(cur solution, slotIdx int, c assignment) bool {
	for _, member := range s.varietyGroupOf(slotIdx) {
		if member == slotIdx {
			continue
		}
		if prev, ok := cur[member]; ok && prev.Recipe.Name == c.Recipe.Name {
			return true
		}
	}
	return false
}

func (s *solver) isDinnerSlot(slotIdx int) bool {
	for _, d := range s.m.dinnerSlots {
		if d == slotIdx {
			return true
		}
	}
	return false
}

func (s *solver) violatesDiversity(cur solution, slotIdx int, c assignment) bool {
	if !s.m.diversify || s.m.pinned[slotIdx] || !s.isDinnerSlot(slotIdx) {
		return false
	}
	group := s.m.recipeGroup(c.Recipe)
	if group < 0 {
		return false
	}
	for _, other := range s.m.dinnerSlots {
		if other == slotIdx || s.m.pinned[other] {
			continue
		}
		if prev, ok := cur[other]; ok && s.m.recipeGroup(prev.Recipe) == group {
			return true
		}
	}
	return false
}

// requiredGroupsReachable prunes branches that can no longer cover every
// required ingredient group with the dinner slots still unassigned.
func (s *solver) requiredGroupsReachable(cur solution, pos int) bool {
	if !s.m.requireGroups {
		return true
	}
	missing := len(s.m.requiredGroups)
	covered := map[int]bool{}
	for _, d := range s.m.dinnerSlots {
		if a, ok := cur[d]; ok {
			g := s.m.recipeGroup(a.Recipe)
			if s.m.requiredGroups[g] && !covered[g] {
				covered[g] = true
				missing--
			}
		}
	}
	remainingDinners := 0
	for _, slotIdx := range s.order[pos:] {
		if s.isDinnerSlot(slotIdx) {
			remainingDinners++
		}
	}
	return missing <= remainingDinners
}

func (s *solver) expired(ctx context.Context) bool {
	s.nodeBudgetTick++
	if s.nodeBudgetTick%2048 != 0 {
		return s.timedOut
	}
	if ctx.Err() != nil || time.Now().After(s.deadline) {
		s.timedOut = true
	}
	return s.timedOut
}

func (s *solver) search(ctx context.Context, cur solution, pos int, acc float64) {
	if s.expired(ctx) {
		return
	}
	if pos == len(s.order) {
		if s.m.requireGroups && !s.requiredGroupsReachable(cur, pos) {
			return
		}
		// Strict improvement keeps the first assignment found among
		// objective ties, which is the lexicographically smallest one.
		if acc < s.bestObj {
			s.bestObj = acc
			s.best = make(solution, len(cur))
			for k, v := range cur {
				s.best[k] = v
			}
		}
		return
	}

	if acc+s.minCost[pos] >= s.bestObj {
		return
	}
	if !s.requiredGroupsReachable(cur, pos) {
		return
	}

	slotIdx := s.order[pos]
	rest := 0.0
	if pos+1 < len(s.order) {
		rest = s.minCost[pos+1]
	}
	for _, c := range s.choices[pos] {
		if acc+c.TotalCost+rest >= s.bestObj {
			// Choices are cost-sorted; nothing later can do better.
			break
		}
		if s.violatesVariety(cur, slotIdx, c) {
			continue
		}
		if s.violatesDiversity(cur, slotIdx, c) {
			continue
		}
		cur[slotIdx] = c
		s.search(ctx, cur, pos+1, acc+c.TotalCost)
		delete(cur, slotIdx)
		if s.timedOut {
			return
		}
	}
}

// solve runs the search within the configured time budget and reports the
// incumbent with a status describing how the search ended.
func (s *solver) solve(ctx context.Context) (solution, float64, Status) {
	budget := time.Duration(s.opts.TimeBudgetSeconds) * time.Second
	if budget <= 0 {
		budget = 30 * time.Second
	}
	s.deadline = time.Now().Add(budget)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(s.deadline) {
		s.deadline = ctxDeadline
	}

	s.search(ctx, solution{}, 0, 0)

	switch {
	case s.best != nil && !s.timedOut:
		return s.best, s.bestObj, StatusOptimal
	case s.best != nil:
		return s.best, s.bestObj, StatusFeasible
	case s.timedOut:
		return nil, 0, StatusTimedOut
	default:
		return nil, 0, StatusInfeasible
	}
}
