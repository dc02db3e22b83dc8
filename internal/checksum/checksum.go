// Package checksum fingerprints headlines for use as storage keys.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"finnews-scraper/internal/scraper"
)

// Headline returns the hex SHA256 of the four record fields. Each field is
// length-prefixed, so two headlines share a sum exactly when they are equal.
func Headline(h scraper.Headline) string {
	hasher := sha256.New()
	for _, field := range []string{h.Title, h.URL, h.Source, h.PostingDate} {
		hasher.Write([]byte(strconv.Itoa(len(field))))
		hasher.Write([]byte{':'})
		hasher.Write([]byte(field))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
