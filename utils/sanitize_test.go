package utils

import "testing"

func TestSanitizeKeepsSafeMarkup(t *testing.T) {
	got := Sanitize(`<p>hello <b>world</b><script>alert(1)</script></p>`)
	want := `<p>hello <b>world</b></p>`
	if got != want {
		t.Fatalf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeTextStripsEverything(t *testing.T) {
	if got := SanitizeText("  <i>plain</i> title "); got != "plain title" {
		t.Fatalf("SanitizeText = %q", got)
	}
	if got := SanitizeText("<script>x</script>   "); got != "" {
		t.Fatalf("SanitizeText of script-only input = %q, want empty", got)
	}
}

func TestSanitizeTextKeepsPlainCharacters(t *testing.T) {
	cases := map[string]string{
		`Tom & Jerry's "Best"`: `Tom & Jerry's "Best"`,
		"a < b && c":           "a < b && c",
		"<b>bold</b> & more":   "bold & more",
	}
	for in, want := range cases {
		if got := SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}
