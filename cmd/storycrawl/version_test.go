package main

import (
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"storycrawl version", "commit:", "built:", "go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	bi := readBuildInfo()
	if bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Errorf("expected every field to have a value, got %+v", bi)
	}
	if !strings.HasPrefix(bi.GoVersion, "go") && !strings.HasPrefix(bi.GoVersion, "devel") {
		t.Errorf("unexpected Go version %q", bi.GoVersion)
	}
}
