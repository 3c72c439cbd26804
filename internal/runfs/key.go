package runfs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RunKey derives a filesystem-safe run key from a source URL. Watch-style
// URLs use the v query parameter, youtu.be short links use the path, and
// anything else falls back to the last path segment or a content hash of
// the URL itself.
func RunKey(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("source url required")
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		if v := parsed.Query().Get("v"); keyPattern.MatchString(v) {
			return v, nil
		}
		if strings.EqualFold(parsed.Host, "youtu.be") {
			if segment := strings.Trim(parsed.Path, "/"); keyPattern.MatchString(segment) {
				return segment, nil
			}
		}
		if segment := path.Base(strings.Trim(parsed.Path, "/")); keyPattern.MatchString(segment) && segment != "." {
			return segment, nil
		}
	}

	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:8]), nil
}
