package security

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWithin(t *testing.T) {
	base := t.TempDir()

	t.Run("inside base", func(t *testing.T) {
		got, err := ResolveWithin(base, "reports", "audit-20260301.md")
		if err != nil {
			t.Fatalf("ResolveWithin failed: %v", err)
		}
		if !strings.HasPrefix(got, base) {
			t.Errorf("resolved path %q not under base %q", got, base)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("resolved path %q is not absolute", got)
		}
	})

	t.Run("traversal is rejected", func(t *testing.T) {
		for _, elems := range [][]string{
			{".."},
			{"..", "etc", "passwd"},
			{"reports", "..", "..", "escape.md"},
		} {
			if _, err := ResolveWithin(base, elems...); !errors.Is(err, ErrPathEscape) {
				t.Errorf("elements %v: expected ErrPathEscape, got %v", elems, err)
			}
		}
	})

	t.Run("dotdot inside a filename stays put", func(t *testing.T) {
		got, err := ResolveWithin(base, "audit..md")
		if err != nil {
			t.Fatalf("ResolveWithin failed: %v", err)
		}
		if !strings.HasPrefix(got, base) {
			t.Errorf("resolved path %q not under base %q", got, base)
		}
	})

	t.Run("empty base is rejected", func(t *testing.T) {
		if _, err := ResolveWithin(""); err == nil {
			t.Error("expected error for empty base")
		}
	})
}
