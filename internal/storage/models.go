package storage

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusIndexing Status = "INDEXING"
	StatusIndexed  Status = "INDEXED"
	StatusFailed   Status = "FAILED"
)

type Site struct {
	ID         int64
	URL        string
	Name       string
	Status     Status
	StatusTime time.Time
	LastError  sql.NullString
}

type Page struct {
	ID      int64
	SiteID  int64
	Path    string
	Code    int
	Content string
}

// Responsive reports whether the page was fetched with a 2xx status and has
// a body worth lemmatizing.
func (p *Page) Responsive() bool {
	return p.Code >= 200 && p.Code < 300 && p.Content != ""
}

type Field struct {
	ID       int64
	Name     string
	Selector string
	Weight   float64
}

type Lemma struct {
	ID        int64
	SiteID    int64
	Lemma     string
	Frequency int
}

type Index struct {
	ID      int64
	PageID  int64
	LemmaID int64
	Rank    float64
}

// IndexEntry is an index row whose lemma is still identified by text.
type IndexEntry struct {
	PageID int64
	Lemma  string
	Rank   float64
}
