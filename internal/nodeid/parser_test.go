package nodeid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  Key
	}{
		{name: "simple key", raw: "img01[0]", expected: Key{Item: "img01", Stage: 0}},
		{name: "multi digit stage", raw: "sample-7[12]", expected: Key{Item: "sample-7", Stage: 12}},
		{name: "item with dots", raw: "a.b.c[3]", expected: Key{Item: "a.b.c", Stage: 3}},
		{name: "item with brackets", raw: "x[1][2]", expected: Key{Item: "x[1]", Stage: 2}},
		{name: "terminal", raw: "finalize", expected: Terminal},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - missing index", raw: "img01", expectErr: true},
		{name: "error - non numeric index", raw: "img01[x]", expectErr: true},
		{name: "error - missing item", raw: "[0]", expectErr: true},
		{name: "error - negative index", raw: "img01[-1]", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, key)
		})
	}
}

func TestKey_RoundTrip(t *testing.T) {
	for _, k := range []Key{New("img01", 0), New("a.b", 7), New("x[1]", 2), Terminal} {
		t.Run(k.String(), func(t *testing.T) {
			parsed, err := Parse(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, parsed)
		})
	}
}

func TestKey_Prev(t *testing.T) {
	prev, ok := New("img01", 2).Prev()
	require.True(t, ok)
	assert.Equal(t, New("img01", 1), prev)

	_, ok = New("img01", 0).Prev()
	assert.False(t, ok, "first stage has no predecessor")

	_, ok = Terminal.Prev()
	assert.False(t, ok, "terminal has no single predecessor")
}

func TestKey_UsableAsMapKey(t *testing.T) {
	m := map[Key]int{New("a", 0): 1}
	m[New("a", 0)]++
	assert.Equal(t, 2, m[Key{Item: "a", Stage: 0}])
	assert.True(t, Terminal.IsTerminal())
	assert.False(t, New("", 0).IsTerminal())
}

func TestKey_JSONUsesCanonicalForm(t *testing.T) {
	data, err := json.Marshal(map[string]Key{"k": New("img01", 3), "t": Terminal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"img01[3]","t":"finalize"}`, string(data))

	var back map[string]Key
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, New("img01", 3), back["k"])
	assert.Equal(t, Terminal, back["t"])
}
