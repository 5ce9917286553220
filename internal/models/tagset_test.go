package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blubywaff/ftag/internal/models"
)

func TestTagSet_Add(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"Valid tag", "cats", nil},
		{"Hyphenated tag", "black-cat", nil},
		{"Upper case is normalized", "  DOGS ", nil},
		{"Too short", "ab", models.ErrTagTooShort},
		{"Digits rejected", "cat9", models.ErrInvalidTag},
		{"Underscore rejected", "black_cat", models.ErrInvalidTag},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts models.TagSet
			err := ts.Add(tc.input)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, 0, ts.Len())
				return
			}
			require.NoError(t, err)
			assert.True(t, ts.Contains(models.NormalizeTag(tc.input)))
		})
	}
}

func TestTagSet_FillFromString(t *testing.T) {
	var ts models.TagSet

	bad := ts.FillFromString("zeta, alpha,,ALPHA, no, bad1 ,mid")

	assert.Equal(t, []string{"no", "bad1"}, bad)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, ts.Slice())
	assert.Equal(t, "alpha,mid,zeta", ts.String())
}

func TestTagSet_FillFromString_Empty(t *testing.T) {
	var ts models.TagSet

	bad := ts.FillFromString("")

	assert.Empty(t, bad)
	assert.NotNil(t, bad)
	assert.Equal(t, 0, ts.Len())
	assert.Equal(t, []string{}, ts.Slice())
}

func TestTagSet_UnionDifference(t *testing.T) {
	a := models.NewTagSet("one", "two", "three")
	b := models.NewTagSet("three", "four")

	u := a.Duplicate()
	u.Union(b)
	assert.Equal(t, []string{"four", "one", "three", "two"}, u.Slice())
	assert.Equal(t, 3, a.Len(), "Duplicate should be independent")

	d := a.Duplicate()
	d.Difference(b)
	assert.Equal(t, []string{"one", "two"}, d.Slice())

	// Removing absent tags is a no-op
	d.Difference(models.NewTagSet("absent"))
	assert.Equal(t, 2, d.Len())
}

func TestTagSet_JSON(t *testing.T) {
	ts := models.NewTagSet("beta", "alpha")

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `["alpha","beta"]`, string(data))

	var decoded models.TagSet
	require.NoError(t, json.Unmarshal([]byte(`["Gamma","x","alpha"]`), &decoded))
	assert.Equal(t, []string{"alpha", "gamma"}, decoded.Slice())

	assert.Error(t, json.Unmarshal([]byte(`{}`), &decoded))
}

func TestQuery_Matches(t *testing.T) {
	q := models.Query{
		Include: models.NewTagSet("cat"),
		Exclude: models.NewTagSet("nsfw"),
	}

	assert.True(t, q.Matches(models.NewTagSet("cat", "cute")))
	assert.False(t, q.Matches(models.NewTagSet("cute")))
	assert.False(t, q.Matches(models.NewTagSet("cat", "nsfw")))
	assert.True(t, models.Query{}.Matches(models.TagSet{}))
}

func TestQuery_WithDefaultExcludes(t *testing.T) {
	q := models.Query{
		Include: models.NewTagSet("nsfw"),
		Exclude: models.NewTagSet("dog"),
	}

	out := q.WithDefaultExcludes(models.NewTagSet("nsfw", "private"))

	assert.Equal(t, []string{"dog", "private"}, out.Exclude.Slice(), "explicit includes should win over default excludes")
	assert.Equal(t, []string{"dog"}, q.Exclude.Slice(), "original query should be unchanged")
}
