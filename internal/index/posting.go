package index

// Posting records the occurrences of a term on one page.
type Posting struct {
	Frequency int
	Positions []int
}

// pageKey identifies a single page of a document inside the postings map.
type pageKey struct {
	docID string
	page  int
}

// pageInfo holds per-page bookkeeping: the raw text (for snippets), its
// token length (for ranking), and the owning document's filename.
type pageInfo struct {
	filename string
	text     string
	length   int
}

// Match is a single ranked page hit. Snippet is the best excerpt; Excerpts
// holds up to two non-overlapping windows for answer building.
type Match struct {
	DocID    string   `json:"document_id"`
	Filename string   `json:"filename"`
	Page     int      `json:"page"`
	Score    float64  `json:"score"`
	Snippet  string   `json:"snippet"`
	Excerpts []string `json:"excerpts"`
}

// Stats summarises the index's current contents.
type Stats struct {
	Documents int   `json:"documents"`
	Pages     int   `json:"pages"`
	Terms     int   `json:"terms"`
	SizeBytes int64 `json:"size_bytes"`
}
