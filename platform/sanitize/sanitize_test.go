package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "<b>Olá</b> {{nome}}", want: "Olá {{nome}}"},
		{in: "&lt;script&gt;alert(1)&lt;/script&gt;", want: "alert(1)"},
		{in: "  plain  ", want: "plain"},
		{in: "Desconto se valor < 1000 e prazo > 30 dias", want: "Desconto se valor < 1000 e prazo > 30 dias"},
		{in: "a<b e c>d", want: "ad"},
	}
	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlainKeepsMarkupAndDropsControlChars(t *testing.T) {
	got := Plain("  <Ligar> para Ana\r\n\tamanhã\x00 ")
	want := "<Ligar> para Ana\n\tamanhã"
	if got != want {
		t.Fatalf("Plain() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("negociação", 6); got != "negoci" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("short strings must be unchanged, got %q", got)
	}
}
