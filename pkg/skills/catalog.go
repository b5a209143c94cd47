package skills

import (
	"sort"
	"sync"

	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
)

// Catalog holds the registered skills for one engine instance. Separate
// catalogs are fully independent, so multiple memory systems in one process
// never share skills by accident.
type Catalog struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{skills: make(map[string]Skill)}
}

// Register adds a skill to the catalog, replacing any existing skill with
// the same id.
func (c *Catalog) Register(skill Skill) error {
	if skill.ID == "" {
		return memerrors.Wrap(memerrors.ErrInvalidInput, "skill ID is required")
	}
	if skill.Handler == nil {
		return memerrors.Wrap(memerrors.ErrInvalidInput, "skill %s has no handler", skill.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills[skill.ID] = skill
	return nil
}

// Get returns the skill with the given id.
func (c *Catalog) Get(id string) (Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skill, ok := c.skills[id]
	if !ok {
		return Skill{}, memerrors.Wrap(memerrors.ErrSkillNotFound, "%s", id)
	}
	return skill, nil
}

// List returns all registered skills sorted by id.
func (c *Catalog) List() []Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := make([]Skill, 0, len(c.skills))
	for _, skill := range c.skills {
		list = append(list, skill)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Len returns the number of registered skills.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skills)
}
