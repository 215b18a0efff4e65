package canonicalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJCSKeyOrderIndependence(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": false}}
	b := map[string]any{"c": map[string]any{"y": false, "z": true}, "a": 1, "b": 2}

	ca, err := JCS(a)
	require.NoError(t, err)
	cb, err := JCS(b)
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `{"a":1,"b":2,"c":{"y":false,"z":true}}`, string(ca))
}

func TestJCSStructTagsRespected(t *testing.T) {
	type payload struct {
		Second string `json:"second"`
		First  string `json:"first"`
	}
	out, err := JCSString(payload{Second: "2", First: "1"})
	require.NoError(t, err)
	assert.Equal(t, `{"first":"1","second":"2"}`, out)
}

func TestCanonicalHashStable(t *testing.T) {
	v := map[string]any{"x": []any{1, 2, 3}, "name": "trade-license"}

	h1, err := CanonicalHash(v)
	require.NoError(t, err)
	h2, err := CanonicalHash(v)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
