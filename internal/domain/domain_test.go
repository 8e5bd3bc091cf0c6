package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRedirect(t *testing.T) {
	for _, code := range []int{301, 302, 303, 307, 308} {
		assert.True(t, IsRedirect(code), code)
	}
	for _, code := range []int{200, 300, 304, 305, 306, 404, 500} {
		assert.False(t, IsRedirect(code), code)
	}
}

func TestStatusFamily(t *testing.T) {
	assert.Equal(t, 1, StatusFamily(101))
	assert.Equal(t, 2, StatusFamily(204))
	assert.Equal(t, 5, StatusFamily(599))
	assert.Equal(t, 0, StatusFamily(0))
	assert.Equal(t, 0, StatusFamily(600))
}

func TestCatalogSetKeepsFirstPosition(t *testing.T) {
	c := NewCatalog()
	c.Set("Yandex", [][2]string{{"default", "y1"}})
	c.Set("bing", [][2]string{{"default", "b1"}})
	c.Set(" YANDEX", [][2]string{{"mobile", "y2"}})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"bing", "yandex"}, c.Engines())
	assert.Equal(t, []Identity{{Engine: "yandex", Label: "mobile", UserAgent: "y2"}}, c.Lookup("yandex"))
	assert.False(t, c.Has("google"))

	var nilCatalog *Catalog
	assert.Empty(t, nilCatalog.Lookup("x"))
	assert.Zero(t, nilCatalog.Len())
}

func TestResultSetSortedLeavesOriginal(t *testing.T) {
	rs := ResultSet{Outcomes: []ProbeOutcome{
		{Engine: "google", Label: "smartphone"},
		{Engine: "bing", Label: "default"},
		{Engine: "google", Label: "desktop"},
	}}

	sorted := rs.Sorted()

	assert.Equal(t, "bing", sorted.Outcomes[0].Engine)
	assert.Equal(t, "desktop", sorted.Outcomes[1].Label)
	assert.Equal(t, "smartphone", sorted.Outcomes[2].Label)
	assert.Equal(t, "google", rs.Outcomes[0].Engine)
}

func TestResultSetFailures(t *testing.T) {
	msg := "boom"
	status := 200
	rs := ResultSet{Outcomes: []ProbeOutcome{
		{Error: &msg},
		{InitialStatus: &status},
	}}
	assert.Equal(t, 1, rs.Failures())
	assert.Equal(t, 2, rs.Len())
}
