package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analytics-gateway/pkg/secrets"
)

func TestRunVerify(t *testing.T) {
	key, err := secrets.Generate()
	require.NoError(t, err)
	hash, err := secrets.Hash(key)
	require.NoError(t, err)

	assert.NoError(t, runVerify(key, hash))

	err = runVerify("not-the-key", hash)
	require.Error(t, err)
	assert.EqualError(t, err, "key does not match hash")
}

func TestRunVerify_RequiresBothFlags(t *testing.T) {
	assert.Error(t, runVerify("key", ""))
	assert.Error(t, runVerify("", "$2a$10$hash"))
}
