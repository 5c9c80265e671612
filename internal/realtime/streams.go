package realtime

import "strings"

// Named realtime streams.
const (
	StreamNotifications = "notifications"
	// StreamProjectPrefix prefixes per-project chat streams.
	StreamProjectPrefix = "project."
)

// ProjectStream returns the chat stream name for a project.
func ProjectStream(projectID string) string {
	return StreamProjectPrefix + strings.ToLower(strings.TrimSpace(projectID))
}

// ProjectIDFromStream extracts the project id from a chat stream name.
func ProjectIDFromStream(stream string) (string, bool) {
	stream = normalizeStream(stream)
	if !strings.HasPrefix(stream, StreamProjectPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(stream, StreamProjectPrefix)
	return id, id != ""
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

// uniqueStreams normalises names, dropping blanks and repeats while keeping
// the caller's order.
func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	out := make([]string, 0, len(streams))
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, dup := seen[stream]; dup {
			continue
		}
		seen[stream] = struct{}{}
		out = append(out, stream)
	}
	return out
}
