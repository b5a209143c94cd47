package skills

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzeru/agent-memory/pkg/errors"
)

func noopHandler(ctx context.Context, execCtx ExecutionContext) (Payload, error) {
	return TextPayload("ok"), nil
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	catalog := NewCatalog()

	require.NoError(t, catalog.Register(Skill{
		ID:          "echo",
		Name:        "Echo",
		Description: "repeats the query",
		Handler:     noopHandler,
	}))

	skill, err := catalog.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "Echo", skill.Name)

	_, err = catalog.Get("missing")
	assert.ErrorIs(t, err, errors.ErrSkillNotFound)
}

func TestCatalog_RegisterValidation(t *testing.T) {
	catalog := NewCatalog()

	err := catalog.Register(Skill{Name: "no id", Handler: noopHandler})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = catalog.Register(Skill{ID: "no-handler"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	assert.Equal(t, 0, catalog.Len())
}

func TestCatalog_RegisterReplaces(t *testing.T) {
	catalog := NewCatalog()

	require.NoError(t, catalog.Register(Skill{ID: "echo", Name: "Old", Handler: noopHandler}))
	require.NoError(t, catalog.Register(Skill{ID: "echo", Name: "New", Handler: noopHandler}))

	assert.Equal(t, 1, catalog.Len())
	skill, err := catalog.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "New", skill.Name)
}

func TestCatalog_ListSortedByID(t *testing.T) {
	catalog := NewCatalog()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, catalog.Register(Skill{ID: id, Handler: noopHandler}))
	}

	list := catalog.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)
	assert.Equal(t, "zeta", list[2].ID)
}
