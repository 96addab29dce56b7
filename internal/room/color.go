package room

var presencePalette = []string{"#2563eb", "#0891b2", "#16a34a", "#ea580c", "#dc2626", "#7c3aed"}

// ColorFor derives a stable cursor color from a session id.
func ColorFor(sessionID string) string {
	var h int32
	for _, r := range sessionID {
		h = (h << 5) - h + int32(r)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return presencePalette[n%int64(len(presencePalette))]
}
