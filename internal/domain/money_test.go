package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"0", 0, false},
		{"19.99", 1999, false},
		{"100", 10000, false},
		{"5.9", 590, false},
		{"0.001", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "0.99"}`), &v))
	assert.Equal(t, Money(1250), v.A)
	assert.Equal(t, Money(99), v.B)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 12.50, "b": 0.99}`, string(out))

	err = json.Unmarshal([]byte(`{"a": 1.005}`), &v)
	require.Error(t, err)
}

func TestMoney_Percent_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, Money(1000), Money(10000).Percent(10))
	// 10% of 0.05 = 0.005 -> 0.01
	assert.Equal(t, Money(1), Money(5).Percent(10))
	// 10% of 0.04 = 0.004 -> 0.00
	assert.Equal(t, Money(0), Money(4).Percent(10))
}
