package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	content := []byte("problem content")

	h1 := ContentHash(content)
	h2 := ContentHash(content)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // blake2b-256 hex
}

func TestContentHash_DifferentContent(t *testing.T) {
	h1 := ContentHash([]byte("two-sum"))
	h2 := ContentHash([]byte("three-sum"))

	assert.NotEqual(t, h1, h2)
}

func TestVerifyContentHash(t *testing.T) {
	content := []byte("pattern: sliding window")
	hash := ContentHash(content)

	require.NoError(t, VerifyContentHash(content, hash))

	// Измененное содержимое не проходит проверку
	err := VerifyContentHash([]byte("pattern: two pointers"), hash)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")

	// Пустой ожидаемый хеш - ошибка
	assert.Error(t, VerifyContentHash(content, ""))
}

func TestShortHash(t *testing.T) {
	h := ShortHash([]byte("app.js"))
	assert.Len(t, h, 12)
	assert.Equal(t, h, ShortHash([]byte("app.js")))
}
