package blocks

import "strings"

// GalleryIDs reads a gallery value. Current data is a JSON array; older
// lists stored one comma-joined string and still load.
func GalleryIDs(value any) []string {
	var ids []string
	switch v := value.(type) {
	case []string:
		ids = append(ids, v...)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				ids = append(ids, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			ids = append(ids, strings.TrimSpace(s))
		}
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
