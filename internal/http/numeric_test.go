package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumeric_Unmarshal(t *testing.T) {
	tests := []struct {
		raw   string
		set   bool
		value float64
		err   bool
	}{
		{raw: `12`, set: true, value: 12},
		{raw: `"12.5"`, set: true, value: 12.5},
		{raw: `" 3 "`, set: true, value: 3},
		{raw: `null`},
		{raw: `""`},
		{raw: `"abc"`, err: true},
		{raw: `true`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n numeric
			err := json.Unmarshal([]byte(tt.raw), &n)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.set, n.Set)
			assert.Equal(t, tt.value, n.Value)
		})
	}
}

func TestFieldReader_StopsAtFirstError(t *testing.T) {
	var f fieldReader
	assert.Equal(t, int64(0), f.integer("uId", numeric{}))
	assert.Equal(t, 0.0, f.number("distance", numeric{Value: 5, Set: true}))
	require.Error(t, f.err)
	assert.Contains(t, f.err.Error(), "uId is required")

	f = fieldReader{}
	f.integer("takecare_id", numeric{Value: 1.5, Set: true})
	assert.EqualError(t, f.err, "takecare_id must be an integer")

	f = fieldReader{}
	assert.Equal(t, int64(0), f.optInteger("location_id", numeric{}))
	assert.NoError(t, f.err)
}
