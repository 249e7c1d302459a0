// Package validator screens documents before they enter the pipeline. The
// limits bound what the signer is asked to shingle: a title used only for
// display, a body up to 4 MiB of text, and an optional idempotency key that
// must fit its indexed column.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dupscan/dupscan/internal/ingestion"
)

const (
	// MaxBodyBytes is exported so the HTTP layer can cap request bodies
	// before decoding instead of buffering an oversized document.
	MaxBodyBytes = 4 << 20

	maxTitleBytes          = 1024
	maxIdempotencyKeyBytes = 255
)

// ValidationError reports every failed field at once, so a client can fix a
// request in one round trip.
type ValidationError struct {
	Fields map[string]string
}

// Error renders the fields in sorted order, keeping log lines stable.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + e.Fields[field]
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks req and returns a ValidationError listing
// every violated constraint, or nil when the document is acceptable. An
// all-whitespace body is rejected here: it would tokenize to nothing and
// can never match anything.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)
	checkTitle(req.Title, errs)
	checkBody(req.Body, errs)
	checkIdempotencyKey(req.IdempotencyKey, errs)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkTitle(title string, errs map[string]string) {
	switch trimmed := strings.TrimSpace(title); {
	case trimmed == "":
		errs["title"] = "title is required"
	case len(trimmed) > maxTitleBytes:
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleBytes)
	}
}

func checkBody(body string, errs map[string]string) {
	switch {
	case strings.TrimSpace(body) == "":
		errs["body"] = "body is required and must not be empty"
	case len(body) > MaxBodyBytes:
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", MaxBodyBytes)
	}
}

func checkIdempotencyKey(key string, errs map[string]string) {
	if len(key) > maxIdempotencyKeyBytes {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d bytes", maxIdempotencyKeyBytes)
	}
}
