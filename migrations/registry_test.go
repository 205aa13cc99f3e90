package migrations

import (
	"testing"

	"gad-esmeraldas/internal/access/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredMigrations(t *testing.T) {
	require.Len(t, registeredMigrations, 5)

	seen := map[string]bool{}
	for _, m := range registeredMigrations {
		assert.False(t, seen[m.Version], "duplicate version %s", m.Version)
		seen[m.Version] = true
		assert.NotNil(t, m.Up, m.Version)
		assert.NotNil(t, m.Down, m.Version)
		assert.NotEmpty(t, m.Description, m.Version)
	}
}

func TestSystemTemplatesCoverEveryLevel(t *testing.T) {
	levels := map[models.AccessLevel]bool{}
	for _, tmpl := range systemTemplates {
		levels[tmpl.level] = true
	}
	for _, level := range models.AccessLevels {
		assert.True(t, levels[level], "no system template for %s", level)
	}
}
