package indexer

import "time"

// Document is one input to a build. When Load is set it supplies the
// content and its error fails the document; otherwise Content is used.
type Document struct {
	Filename string
	Content  string
	Load     func() (string, error)
}

// Text is a Document whose content is already in memory.
func Text(filename, content string) Document {
	return Document{Filename: filename, Content: content}
}

func (d Document) content() (string, error) {
	if d.Load != nil {
		return d.Load()
	}
	return d.Content, nil
}

// Failure records one document left out of a ModeSkipAndReport build.
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Report summarises a build.
type Report struct {
	Mode      BuildMode     `json:"mode"`
	Documents int           `json:"documents"`
	Indexed   int           `json:"indexed"`
	Skipped   []Failure     `json:"skipped,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
