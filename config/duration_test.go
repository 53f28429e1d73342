package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeouts struct {
	Dial  Duration `json:"dial"`
	Read  Duration `json:"read"`
	Write Duration `json:"write"`
}

func TestDuration_Bind(t *testing.T) {
	cfg := NewConfiguration(map[string]any{
		"client": map[string]any{
			"dial":  "1.5s",
			"read":  int64(time.Second),
			"write": "250ms",
		},
	})

	var got timeouts
	require.NoError(t, cfg.Bind("client", &got))
	assert.Equal(t, 1500*time.Millisecond, got.Dial.Std())
	assert.Equal(t, time.Second, got.Read.Std())
	assert.Equal(t, "250ms", got.Write.String())
}

func TestDuration_MarshalUsesStringForm(t *testing.T) {
	data, err := json.Marshal(timeouts{Dial: Duration(2 * time.Second)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dial":"2s","read":"0s","write":"0s"}`, string(data))
}

func TestDuration_Invalid(t *testing.T) {
	var d Duration
	err := json.Unmarshal([]byte(`"soon"`), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}
