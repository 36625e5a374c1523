package progress_test

import (
	"bytes"
	"testing"

	"github.com/seanpdoyle/emberjs-build/internal/progress"
)

func TestNilBar(t *testing.T) {
	var bar *progress.Bar
	bar.AddMax(2)
	bar.Add(1)
	bar.Describe("ember-runtime")
	bar.Finish()

	if progress.New(nil, "bundles", false) != nil {
		t.Fatal("expected disabled bar to be nil")
	}
}

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	bar := progress.New(&buf, "bundles", true)
	bar.AddMax(2)
	bar.Add(1)
	bar.Describe("ember-template-compiler")
	bar.Add(1)
	bar.Finish()

	if buf.Len() == 0 {
		t.Fatal("expected output")
	}
}
