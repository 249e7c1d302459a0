package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dupscan/dupscan/internal/scanner"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestTokenize(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"foo-bar baz_qux", []string{"foo", "bar", "baz", "qux"}},
		{"numbers 123 mix3d", []string{"numbers", "123", "mix3d"}},
		{"", nil},
		{"   \t\n  ", nil},
	} {
		got := Tokenize(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := writeTempFile(t, "t1 the quick brown fox\nt2 jumps over the lazy dog\n\nt3\n")
	docs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("loaded %d documents, want 3", len(docs))
	}
	if docs[0].ID != "t1" || len(docs[0].Tokens) != 4 {
		t.Errorf("first document = %+v", docs[0])
	}
	// An ID with no words is a valid empty document.
	if docs[2].ID != "t3" || len(docs[2].Tokens) != 0 {
		t.Errorf("empty document = %+v", docs[2])
	}
}

func TestLoadFileDuplicateID(t *testing.T) {
	path := writeTempFile(t, "t1 a b\nt1 c d\n")
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate-ID error, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTruth(t *testing.T) {
	path := writeTempFile(t, "t1 t5\nt2 t8\n\n")
	truth, err := LoadTruth(path)
	if err != nil {
		t.Fatalf("LoadTruth failed: %v", err)
	}
	if truth["t1"] != "t5" || truth["t5"] != "t1" {
		t.Errorf("truth map not bidirectional: %v", truth)
	}
	if len(truth) != 4 {
		t.Errorf("truth map has %d entries, want 4", len(truth))
	}
}

func TestLoadTruthMalformed(t *testing.T) {
	path := writeTempFile(t, "t1 t5 t9\n")
	if _, err := LoadTruth(path); err == nil {
		t.Error("expected error for line with 3 fields")
	}
}

func TestEvaluate(t *testing.T) {
	truth := map[string]string{"t1": "t5", "t5": "t1", "t2": "t8", "t8": "t2"}
	pairs := []scanner.Pair{
		{DocA: "t1", DocB: "t5", Similarity: 0.9}, // true positive
		{DocA: "t3", DocB: "t4", Similarity: 0.6}, // false positive
	}
	ev := Evaluate(pairs, truth)
	if ev.TruePositives != 1 {
		t.Errorf("TruePositives = %d, want 1", ev.TruePositives)
	}
	if ev.FalsePositives != 1 {
		t.Errorf("FalsePositives = %d, want 1", ev.FalsePositives)
	}
	if ev.KnownPairs != 2 {
		t.Errorf("KnownPairs = %d, want 2", ev.KnownPairs)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	ev := Evaluate(nil, map[string]string{})
	if ev.TruePositives != 0 || ev.FalsePositives != 0 || ev.KnownPairs != 0 {
		t.Errorf("empty evaluation = %+v", ev)
	}
}
