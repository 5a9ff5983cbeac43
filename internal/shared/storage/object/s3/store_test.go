package s3

import (
	"io"
	"strings"
	"testing"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "preferences/abc.json", want: "preferences/abc.json"},
		{name: "simple prefix", prefix: "root", key: "preferences/abc.json", want: "root/preferences/abc.json"},
		{name: "prefix trailing slash", prefix: "root/", key: "preferences/abc.json", want: "root/preferences/abc.json"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/preferences/abc.json", want: "root/preferences/abc.json"},
		{name: "nested prefix", prefix: "root/sub", key: "preferences/abc.json", want: "root/sub/preferences/abc.json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("hello")}
	if _, err := io.ReadAll(c); err != nil {
		t.Fatalf("read: %v", err)
	}
	if c.n != 5 {
		t.Fatalf("expected 5 bytes counted, got %d", c.n)
	}
}

func TestNormalizePrefix(t *testing.T) {
	if got := normalizePrefix("  /dash/prefs/ "); got != "dash/prefs" {
		t.Fatalf("normalizePrefix = %q", got)
	}
}
