package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blueprint-paywall/internal/catalog"
)

func TestLoad_EmbeddedRoles(t *testing.T) {
	c, err := catalog.Load()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"architect", "builder", "driver", "guide", "stabilizer", "visionary"},
		c.Roles())

	for _, role := range c.Roles() {
		b, ok := c.Get(role)
		require.True(t, ok, role)
		assert.NotEmpty(t, b.Subhead, role)
		assert.NotEmpty(t, b.Sections, role)
		for _, s := range b.Sections {
			assert.NotEmpty(t, s.Title)
			assert.NotEmpty(t, s.Body)
		}
	}
}

func TestGet_CaseInsensitive(t *testing.T) {
	c := catalog.MustLoad()

	a, ok := c.Get("ARCHITECT")
	require.True(t, ok)
	b, _ := c.Get("architect")
	assert.Equal(t, a, b)

	assert.False(t, c.Has("wizard"))
	assert.False(t, c.Has(""))
}

func TestRoles_ReturnsCopy(t *testing.T) {
	c := catalog.MustLoad()
	r := c.Roles()
	r[0] = "mutated"
	assert.Equal(t, "architect", c.Roles()[0])
}

func TestParse(t *testing.T) {
	c, err := catalog.Parse([]byte(`{"Driver":{"subhead":"s","sections":[{"title":"t","body":["b"]}]}}`))
	require.NoError(t, err)
	assert.True(t, c.Has("driver"))

	_, err = catalog.Parse([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = catalog.Parse([]byte(`{" ":{}}`))
	require.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Architect", catalog.Title("architect"))
	assert.Equal(t, "Growth Role Architect", catalog.Title("growth-role-architect"))
	assert.Equal(t, "", catalog.Title(""))
}
