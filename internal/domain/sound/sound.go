// Package sound provides the Sound domain entity.
package sound

// Sound represents one entry of the ambient sound catalog.
// Catalog entries are immutable once loaded.
type Sound struct {
	Key          string   // Stable catalog key
	Name         string   // Display name
	Src          string   // Source file path (relative to the library root)
	IsContiguous bool     // true: clip loops seamlessly, false: replayed at randomized intervals
	Tags         []string // Free-form tags ("nature", "night", ...)
}

// HasTag checks whether the sound carries the given tag.
// An empty tag matches every sound.
func (s *Sound) HasTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
