package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bogzak/search-engine-ua-checker/internal/domain"
)

func labels(ids []domain.Identity) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Label+"="+id.UserAgent)
	}
	return out
}

func TestParseJSONShapes(t *testing.T) {
	data := []byte(`{
		" Google ": {"desktop": "Googlebot/2.1", "smartphone": "Googlebot-Mobile", "nested": {"x": 1}},
		"bing": ["bingbot/2.0", 42, null, {"mobile": "bingbot-mobile"}],
		"yandex": "YandexBot/3.0",
		"duck": 17,
		"empty": null
	}`)

	cat, err := Parse(data, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, []string{"bing", "duck", "empty", "google", "yandex"}, cat.Engines())
	assert.Equal(t, []string{"desktop=Googlebot/2.1", "smartphone=Googlebot-Mobile"}, labels(cat.Lookup("google")))
	assert.Equal(t, []string{"1=bingbot/2.0", "2=42", "mobile=bingbot-mobile"}, labels(cat.Lookup("bing")))
	assert.Equal(t, []string{"default=YandexBot/3.0"}, labels(cat.Lookup("YANDEX")))
	assert.True(t, cat.Has("duck"))
	assert.Empty(t, cat.Lookup("duck"))
	assert.Empty(t, cat.Lookup("empty"))

	for _, id := range cat.Lookup("google") {
		assert.Equal(t, "google", id.Engine)
	}
}

func TestParseJSONKeepsSourceOrder(t *testing.T) {
	data := []byte(`{"g": {"z": "1", "a": "2", "m": "3"}}`)

	cat, err := Parse(data, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"z=1", "a=2", "m=3"}, labels(cat.Lookup("g")))
}

func TestParseDuplicateEngineLastWins(t *testing.T) {
	data := []byte(`{"Google": "first", "google ": "second"}`)

	cat, err := Parse(data, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, []string{"default=second"}, labels(cat.Lookup("google")))
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
google:
  desktop: Googlebot/2.1
  smartphone: Googlebot-Mobile
bing:
  - bingbot/2.0
  - bingbot-mobile
yandex: YandexBot/3.0
other: 3
`)

	cat, err := Parse(data, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, []string{"bing", "google", "other", "yandex"}, cat.Engines())
	assert.Equal(t, []string{"desktop=Googlebot/2.1", "smartphone=Googlebot-Mobile"}, labels(cat.Lookup("google")))
	assert.Equal(t, []string{"1=bingbot/2.0", "2=bingbot-mobile"}, labels(cat.Lookup("bing")))
	assert.Equal(t, []string{"default=YandexBot/3.0"}, labels(cat.Lookup("yandex")))
	assert.Empty(t, cat.Lookup("other"))
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		data   string
		format Format
	}{
		"broken json":    {`{"google": `, FormatJSON},
		"array root":     {`["a", "b"]`, FormatJSON},
		"trailing data":  {`{} {}`, FormatJSON},
		"empty json":     {``, FormatJSON},
		"scalar yaml":    {`just a string`, FormatYAML},
		"broken yaml":    {"google: [a, b", FormatYAML},
		"empty yaml doc": {``, FormatYAML},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), tc.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "user_agents.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"google": "Googlebot"}`), 0o600))

	cat, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, cat.Engines())

	yamlPath := filepath.Join(dir, "agents.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("bing: bingbot\n"), 0o600))

	cat, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"bing"}, cat.Engines())

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{nope`), 0o600))
	_, err = Load(badPath)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("a.YML"))
	assert.Equal(t, FormatJSON, FormatFor("a.json"))
	assert.Equal(t, FormatJSON, FormatFor("agents"))
}
