// Package link derives video identifiers from campaign link cells.
package link

import "strings"

// DefaultMarker precedes the video id in a YouTube watch URL.
const DefaultMarker = "watch?v="

// VideoID returns the part of link after the last occurrence of marker.
// A link without the marker is returned whole; surrounding whitespace is
// always trimmed. No further URL parsing is done, so anything following the
// id (e.g. "&t=10s") is kept.
func VideoID(link, marker string) string {
	link = strings.TrimSpace(link)
	if marker == "" {
		return link
	}
	if i := strings.LastIndex(link, marker); i >= 0 {
		return strings.TrimSpace(link[i+len(marker):])
	}
	return link
}

// Normalize returns the join key for a link cell. Keys compare exactly
// after trimming surrounding whitespace.
func Normalize(link string) string {
	return strings.TrimSpace(link)
}
