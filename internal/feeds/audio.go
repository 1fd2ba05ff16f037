package feeds

import (
	"net/url"
	"path"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Extensions that mark a plain link as audio. gofeed keeps only the href of
// non-enclosure links, so the type has to come from the path.
var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
}

// ExtractAudioURL finds the audio for a feed item: the first audio enclosure,
// otherwise the first link that points at an audio file.
//
// The bool is false when the item has no audio at all.
func ExtractAudioURL(item *gofeed.Item) (string, bool) {
	if item == nil {
		return "", false
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(enc.Type)), "audio/") {
			return strings.TrimSpace(enc.URL), true
		}
	}

	links := make([]string, 0, len(item.Links)+1)
	if item.Link != "" {
		links = append(links, item.Link)
	}
	links = append(links, item.Links...)
	for _, link := range links {
		if strings.HasPrefix(linkMediaType(link), "audio/") {
			return strings.TrimSpace(link), true
		}
	}

	return "", false
}

func linkMediaType(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}

	return audioExtensions[strings.ToLower(path.Ext(u.Path))]
}
