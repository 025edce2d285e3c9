package planner

import (
	"fmt"
	"strings"

	"meal-planner/internal/recipe"
)

// model is the fully assembled search problem: one candidate domain per
// cook slot, leftover linkage, variety constraints, and pins already
// folded in. Leftover slots carry no domain; their assignment follows
// from their source slot's recipe.
type model struct {
	slots   []Slot
	domains [][]Candidate

	// dependents maps a cook slot index to the leftover slots it feeds.
	dependents map[int][]int

	// varietyGroups are sets of unpinned cook slot indices whose recipes
	// must be pairwise distinct (one set per meal type with two or more
	// of them).
	varietyGroups [][]int

	// dinnerSlots are the dinner cook slots subject to ingredient-group
	// diversity; groupOf maps group keys to ids.
	dinnerSlots    []int
	groupOf        map[string]int
	diversify      bool
	requireGroups  bool
	requiredGroups map[int]bool

	// pinned marks slots whose domain was collapsed by a pin.
	pinned map[int]bool

	// infeasibleSlots labels cook slots that ended with an empty domain.
	// They are excluded from search and reported on the result.
	infeasibleSlots []string
}

// slotLabel names a slot for diagnostics, e.g. "Tuesday lunch".
func slotLabel(s Slot) string {
	return fmt.Sprintf("%s %s", DayNames[s.Day%len(DayNames)], s.MealType)
}

// buildModel filters and scores candidates per cook slot, links leftover
// slots, applies pins, and records variety and group-diversity structure
// for the solver.
func buildModel(recipes []*recipe.Recipe, slots []Slot, p *Preferences, opts Options, pins []ResolvedPin, groups recipe.GroupTable) (*model, error) {
	m := &model{
		slots:          slots,
		domains:        make([][]Candidate, len(slots)),
		dependents:     map[int][]int{},
		groupOf:        map[string]int{},
		requiredGroups: map[int]bool{},
		pinned:         map[int]bool{},
	}

	pinBySlot := map[int]ResolvedPin{}
	for _, pin := range pins {
		pinBySlot[pin.SlotIndex] = pin
	}

	cooksByMeal := map[string][]int{}
	for i, slot := range slots {
		if slot.PrepStyle == PrepLeftover {
			m.dependents[slot.SourceIndex] = append(m.dependents[slot.SourceIndex], i)
			continue
		}
		cooksByMeal[slot.MealType] = append(cooksByMeal[slot.MealType], i)

		if pin, ok := pinBySlot[i]; ok {
			// Pinned recipes bypass the pre-filter; the user asked for
			// them explicitly. Only the multiplier remains free.
			m.domains[i] = scoreCandidates([]*recipe.Recipe{pin.Recipe}, slot.Target, opts)
			m.pinned[i] = true
			continue
		}

		pool := filterCandidates(recipes, slot, p)
		m.domains[i] = scoreCandidates(pool, slot.Target, opts)
		if len(m.domains[i]) == 0 {
			m.infeasibleSlots = append(m.infeasibleSlots, slotLabel(slot))
		}
	}

	// One variety group per meal type with at least two unpinned cook
	// slots. A pinned recipe may repeat: the user asked for it.
	for _, meal := range p.MealsPerDay {
		var cooks []int
		for _, i := range cooksByMeal[meal] {
			if !m.pinned[i] {
				cooks = append(cooks, i)
			}
		}
		if len(cooks) >= 2 {
			m.varietyGroups = append(m.varietyGroups, cooks)
		}
	}

	m.dinnerSlots = cooksByMeal["dinner"]
	m.groupOf = groups.KeyToID

	// Group diversity needs at least two unpinned dinners and more than
	// one group among their candidates; a single-group pool would
	// otherwise be unplannable.
	unpinnedDinners := 0
	groupsPresent := map[int]bool{}
	for _, d := range m.dinnerSlots {
		if !m.pinned[d] {
			unpinnedDinners++
		}
		for _, c := range m.domains[d] {
			if g := m.recipeGroup(c.Recipe); g >= 0 {
				groupsPresent[g] = true
			}
		}
	}
	m.diversify = unpinnedDinners >= 2 && len(groupsPresent) > 1
	if len(m.dinnerSlots) > 0 && len(p.RequiredGroups) > 0 {
		m.requireGroups = true
		for _, g := range p.RequiredGroups {
			key := "group:" + strings.ToLower(strings.TrimSpace(g))
			id, ok := groups.KeyToID[key]
			if !ok {
				return nil, fmt.Errorf("%w: required ingredient group %q matches no candidate recipe", ErrConfiguration, g)
			}
			m.requiredGroups[id] = true
		}
	}

	return m, nil
}

// cookSlots returns the indices of slots the solver branches on, in slot
// order. Infeasible slots are skipped; they stay unassigned.
func (m *model) cookSlots() []int {
	var out []int
	for i, slot := range m.slots {
		if slot.PrepStyle == PrepLeftover {
			continue
		}
		if len(m.domains[i]) == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// recipeGroup resolves a recipe's ingredient-group id, or -1 when the
// recipe is not in the table.
func (m *model) recipeGroup(r *recipe.Recipe) int {
	key := recipe.GroupKey(r)
	if id, ok := m.groupOf[key]; ok {
		return id
	}
	return -1
}
