package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Document is one corpus entry: a stable identifier and its ordered,
// normalised token sequence. Documents are immutable once loaded.
type Document struct {
	ID     string
	Tokens []string
}

// maxLineSize bounds a single corpus line (one whole document).
const maxLineSize = 16 * 1024 * 1024

// LoadFile reads a corpus in the one-document-per-line format: each line
// holds the document ID followed by its whitespace-separated words. Blank
// lines are skipped; a line with an ID and no words is a valid empty
// document.
func LoadFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	var docs []Document
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		id := fields[0]
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate document ID %q at line %d", id, lineNo)
		}
		seen[id] = struct{}{}
		docs = append(docs, Document{
			ID:     id,
			Tokens: fields[1:],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	return docs, nil
}
