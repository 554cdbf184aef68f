package domain

// Document is a denormalized search document ready for import. Field names
// are dynamic: multi-language fields carry a _<lang> suffix and displayed
// prices a _<currency> suffix, so a map is the natural shape.
type Document map[string]any

// Synonym is a search-server-side query expansion rule attached to a
// collection.
type Synonym struct {
	ID       string   `json:"id"`
	Root     string   `json:"root,omitempty"`
	Synonyms []string `json:"synonyms"`
}
