// Package youtube looks up video metadata through the YouTube Data API v3.
//
// Each lookup is one videos.list round trip for a single id, requesting the
// statistics and contentDetails parts. Only the view count and the ISO-8601
// duration are kept. An id the API does not know returns [ErrNotFound].
//
// duration.go converts the ISO-8601 durations to seconds.
package youtube
