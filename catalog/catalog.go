// Package catalog holds the static quest table served by the deployment.
package catalog

import (
	"sort"

	"github.com/layer-3/questor/core"
)

// Catalog is a read-only mapping from quest id to quest metadata
type Catalog struct {
	quests map[int]core.Quest
	order  []int
}

// New builds a catalog from the given quests. Later duplicates of an id are ignored.
func New(quests []core.Quest) *Catalog {
	c := &Catalog{quests: make(map[int]core.Quest, len(quests))}
	for _, q := range quests {
		if _, ok := c.quests[q.ID]; ok {
			continue
		}
		c.quests[q.ID] = q
		c.order = append(c.order, q.ID)
	}
	sort.Ints(c.order)
	return c
}

// Get returns the quest with the given id
func (c *Catalog) Get(id int) (core.Quest, bool) {
	q, ok := c.quests[id]
	return q, ok
}

// List returns all quests ordered by id
func (c *Catalog) List() []core.Quest {
	out := make([]core.Quest, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.quests[id])
	}
	return out
}
