package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ContentHash вычисляет blake2b-256 хеш содержимого файла
// Используется для checksums в bundle manifest и для content-addressed
// ключей static-assets tier (новый deploy естественно инвалидирует кеш)
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// VerifyContentHash проверяет, соответствует ли содержимое сохраненному хешу
func VerifyContentHash(content []byte, expected string) error {
	if expected == "" {
		return fmt.Errorf("expected hash cannot be empty")
	}

	computed := ContentHash(content)
	if computed != expected {
		return fmt.Errorf("content hash mismatch: expected %s, got %s", expected, computed)
	}

	return nil
}

// ShortHash вычисляет SHA256 и возвращает первые 12 hex символов
// Используется для коротких версионных суффиксов static assets
func ShortHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:12]
}
