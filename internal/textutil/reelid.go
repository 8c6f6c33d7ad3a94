package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ReelIDLength is the number of hex characters kept from the title digest.
const ReelIDLength = 10

// ReelID derives the stable reel identifier for a story title: the first ten
// hex characters of its SHA-256 digest, uppercased.
func ReelID(title string) string {
	sum := sha256.Sum256([]byte(title))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:ReelIDLength])
}

// WordCount counts words the way post length bounds are measured: the text is
// split on single spaces, so repeated spaces produce empty words.
func WordCount(text string) int {
	return len(strings.Split(text, " "))
}
