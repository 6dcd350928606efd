package shader

import (
	"strings"
	"testing"
)

func TestWrapFragmentAddsPreambleAndMain(t *testing.T) {
	t.Parallel()

	user := "void mainImage(out vec4 c, in vec2 p) { c = vec4(1.0); }\n"
	src := WrapFragment(FeedbackPreamble(), user)

	if !strings.HasPrefix(src, "#version 300 es") {
		t.Errorf("wrapped source does not start with a version directive")
	}
	for _, name := range FeedbackUniforms {
		if !strings.Contains(src, " "+name+";") {
			t.Errorf("wrapped source does not declare %s", name)
		}
	}
	if !strings.Contains(src, "mainImage(fragColor, gl_FragCoord.xy)") {
		t.Errorf("wrapped source has no entry point")
	}
}

func TestWrapFragmentKeepsCompletePrograms(t *testing.T) {
	t.Parallel()

	full := "  #version 300 es\nvoid main() {}\n"
	if got := WrapFragment(DisplayPreamble(), full); got != full {
		t.Errorf("complete program was modified:\n%s", got)
	}
}

func TestDisplayPreambleDeclaresContract(t *testing.T) {
	t.Parallel()

	src := DisplayPreamble()
	for _, name := range DisplayUniforms {
		if !strings.Contains(src, " "+name+";") {
			t.Errorf("display preamble does not declare %s", name)
		}
	}
	if strings.Contains(src, PriorFeedbackFrame) {
		t.Errorf("display preamble declares a feedback-only uniform")
	}
}
