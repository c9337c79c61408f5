package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestTextPlain(t *testing.T) {
	path := writeTemp(t, "notes.txt", "Hello world. This is a test.")
	got, err := Text("notes.txt", path)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Hello world. This is a test." {
		t.Fatalf("got %q", got)
	}
}

func TestTextPlainDropsInvalidUTF8(t *testing.T) {
	path := writeTemp(t, "raw.bin", "ok\xff\xfe then\x00done")
	got, err := Text("raw.bin", path)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if strings.ContainsRune(got, '\x00') || !strings.Contains(got, "ok") {
		t.Fatalf("invalid bytes not cleaned: %q", got)
	}
}

func TestTextEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.txt", "   \n ")
	if _, err := Text("empty.txt", path); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestTextHTMLStripsMarkup(t *testing.T) {
	page := `<html><head><style>body{color:red}</style><script>var x=1;</script></head>` +
		`<body><p>First paragraph.</p><div>Second block.</div></body></html>`
	path := writeTemp(t, "page.html", page)
	got, err := Text("page.html", path)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if strings.Contains(got, "color:red") || strings.Contains(got, "var x") {
		t.Fatalf("script/style leaked into text: %q", got)
	}
	if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second block.") {
		t.Fatalf("missing body text: %q", got)
	}
}
