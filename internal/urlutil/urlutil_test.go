package urlutil

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func drawBase(rt *rapid.T) string {
	return fmt.Sprintf(
		"%s://%s:%d",
		rapid.SampledFrom([]string{"http", "https"}).Draw(rt, "scheme"),
		rapid.SampledFrom([]string{"localhost", "127.0.0.1", "app.example.test"}).Draw(rt, "host"),
		rapid.IntRange(1024, 9999).Draw(rt, "port"),
	)
}

func TestBuildAbsolute_JoinsPaths(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := drawBase(rt)
		slashes := strings.Repeat("/", rapid.IntRange(0, 3).Draw(rt, "slashes"))
		segment := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "segment")

		want := base + "/" + segment
		if got := BuildAbsolute(base+slashes, "/"+segment); got != want {
			rt.Fatalf("leading slash: got=%s want=%s", got, want)
		}
		if got := BuildAbsolute(base+slashes, segment); got != want {
			rt.Fatalf("bare segment: got=%s want=%s", got, want)
		}
		if got := BuildAbsolute(base+slashes, ""); got != base {
			rt.Fatalf("empty path: got=%s want=%s", got, base)
		}
	})
}

func TestBuildAbsolute_KeepsAbsoluteTargets(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := drawBase(rt) + "/" + rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "path")
		if got := BuildAbsolute("http://localhost:4321", target); got != target {
			rt.Fatalf("absolute target rewritten: got=%s want=%s", got, target)
		}
	})
}

func TestValidateBaseURL(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"http://localhost:4321", "https://app.example.test/", " http://127.0.0.1:8080 "} {
		if err := ValidateBaseURL(ok); err != nil {
			t.Errorf("ValidateBaseURL(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "localhost:4321", "ftp://localhost", "http://", "://"} {
		if err := ValidateBaseURL(bad); err == nil {
			t.Errorf("ValidateBaseURL(%q) = nil, want error", bad)
		}
	}
}

func TestIsLoopback(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"http://localhost:4321":    true,
		"http://127.0.0.1:8080/":   true,
		"http://[::1]:4321":        true,
		"https://app.example.test": false,
	}
	for base, want := range cases {
		if got := IsLoopback(base); got != want {
			t.Errorf("IsLoopback(%q) = %v, want %v", base, got, want)
		}
	}
}
