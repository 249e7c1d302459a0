package corpus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dupscan/dupscan/internal/scanner"
)

// LoadTruth reads a ground-truth file of known duplicate pairs, one pair of
// document IDs per line, and maps each document to its counterpart in both
// directions.
func LoadTruth(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening truth file: %w", err)
	}
	defer f.Close()

	truth := make(map[string]string)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("truth file line %d: expected 2 document IDs, got %d", lineNo, len(fields))
		}
		truth[fields[0]] = fields[1]
		truth[fields[1]] = fields[0]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading truth file: %w", err)
	}
	return truth, nil
}

// Evaluation summarises scan output against a ground-truth pair table.
type Evaluation struct {
	TruePositives  int
	FalsePositives int
	KnownPairs     int
}

// Evaluate counts how many emitted pairs are known duplicates. Each
// unordered pair appears at most once in the scan output, so no
// double-counting correction is needed.
func Evaluate(pairs []scanner.Pair, truth map[string]string) Evaluation {
	ev := Evaluation{KnownPairs: len(truth) / 2}
	for _, p := range pairs {
		if truth[p.DocA] == p.DocB {
			ev.TruePositives++
		} else {
			ev.FalsePositives++
		}
	}
	return ev
}
