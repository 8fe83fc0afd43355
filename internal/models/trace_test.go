package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultNumber(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`0.85`), &r))
	require.NotNil(t, r.Number)
	assert.Equal(t, 0.85, *r.Number)
	assert.Equal(t, "0.85", r.String())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `0.85`, string(out))
}

func TestResultString(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(`"pass"`), &r))
	assert.Nil(t, r.Number)
	assert.Equal(t, "pass", r.String())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `"pass"`, string(out))
}

func TestResultRejectsObjects(t *testing.T) {
	var r Result
	assert.Error(t, json.Unmarshal([]byte(`{"score": 1}`), &r))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleUser, NormalizeRole("user"))
	assert.Equal(t, RoleAssistant, NormalizeRole("assistant"))
	assert.Equal(t, RoleSystem, NormalizeRole("system"))
	assert.Equal(t, RoleOther, NormalizeRole("tool"))
	assert.Equal(t, RoleOther, NormalizeRole(""))
}
