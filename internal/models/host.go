package models

type Host struct {
	ID         int64             `json:"id"`
	Hostname   string            `json:"hostname"`
	Tags       []string          `json:"tags"`
	Attributes map[string]string `json:"attributes"`
}

// HasTag reports whether the host carries the named tag.
func (h *Host) HasTag(name string) bool {
	for _, t := range h.Tags {
		if t == name {
			return true
		}
	}
	return false
}
