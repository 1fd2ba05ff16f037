package podscribe

import "net/url"

// CleanURL strips the query string and fragment from a URL so it can be
// used as a stable deduplication key.
//
// Anything that fails to parse is returned unchanged.
func CleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
