package images

import (
	"fmt"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const keyPrefix = "recipes/"

// Key is the blob key for one stored image of a recipe:
// recipes/<recipe id>/<suffix>.<ext>.
func Key(recipeID int64, f Format, suffix string) string {
	return keyPrefix + strconv.FormatInt(recipeID, 10) + "/" + suffix + "." + f.Ext()
}

// NewSuffix returns a short random, URL-safe file stem.
func NewSuffix() (string, error) {
	s, err := gonanoid.New(12)
	if err != nil {
		return "", fmt.Errorf("generate key suffix: %w", err)
	}
	return s, nil
}

// validKey rejects keys that could escape a store root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
