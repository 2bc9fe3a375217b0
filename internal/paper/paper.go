// Package paper holds the values shared between the search, download and
// presentation layers.
package paper

import "strings"

// Entry is one search hit. It is immutable once produced by a search response.
type Entry struct {
	// ID is the INSPIRE control number, stable across a query.
	ID      string
	Title   string
	Authors []string
	Venue   string
	Year    string
	Created string
	// DownloadRef is the arXiv identifier handed to the fetch capability.
	// Empty when the record has no preprint.
	DownloadRef string
	Eprints     []string
}

// AuthorList joins the author names the way the result table shows them.
func (e Entry) AuthorList() string {
	return strings.Join(e.Authors, ", ")
}

// Publication is the journal reference shown next to the authors, e.g.
// "Adv.Theor.Math.Phys. 2 (1998)". Empty for unpublished records.
func (e Entry) Publication() string {
	switch {
	case e.Venue != "" && e.Year != "":
		return e.Venue + " (" + e.Year + ")"
	case e.Venue != "":
		return e.Venue
	default:
		return e.Year
	}
}

// HasPreprint reports whether the entry can be downloaded.
func (e Entry) HasPreprint() bool {
	return e.DownloadRef != ""
}

// Preprint is the payload returned by the fetch capability.
type Preprint struct {
	// Ref is the identifier that was requested.
	Ref string
	// EntryID is the Atom <id> of the resolved arXiv entry, e.g.
	// http://arxiv.org/abs/2101.00001v2.
	EntryID string
	// URL is the PDF link the payload was downloaded from.
	URL  string
	Data []byte
}
