package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var payload struct {
		Planted Date  `json:"planted"`
		Harvest *Date `json:"harvest"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"planted":"2026-03-01","harvest":"2026-06-15T10:00:00Z"}`), &payload))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), payload.Planted.Time)
	assert.Equal(t, "2026-06-15", payload.Harvest.Format(DateLayout))

	out, err := json.Marshal(payload.Planted)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-01"`, string(out))

	out, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
	assert.Nil(t, Date{}.Ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"planted":"01/03/2026"}`), &payload))
}
