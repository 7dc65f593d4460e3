package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateKey generates a random key with the given prefix.
// Format: prefix_randomhex
func GenerateKey(prefix string) (string, error) {
	b := make([]byte, 16) // 32 char hex
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b)), nil
}

// GenerateAssetKey returns an object key for an uploaded image:
// products/img_<hex><ext>
func GenerateAssetKey(folder, ext string) (string, error) {
	name, err := GenerateKey("img")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s%s", folder, name, ext), nil
}
