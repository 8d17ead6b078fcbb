package strutil

import "testing"

func TestIsNumber(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"0", true},
		{"0.50", true},
		{"+1", true},
		{"-1.5", true},
		{".5", true},
		{"1.2.3", false},
		{"1a", false},
		{"a1", false},
		{"--1", false},
		{"1-", false},
	}
	for _, c := range cases {
		if got := IsNumber(c.in); got != c.want {
			t.Errorf("IsNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsDigitsOnly(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"123", true},
		{"12a", false},
		{"-123", false},
	}
	for _, c := range cases {
		if got := IsDigitsOnly(c.in); got != c.want {
			t.Errorf("IsDigitsOnly(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFirstNonNumericPosition(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"123", 3},
		{"123MB", 3},
		{"0.50;0.8", 4},
		{"abc", 0},
	}
	for _, c := range cases {
		if got := FirstNonNumericPosition(c.in); got != c.want {
			t.Errorf("FirstNonNumericPosition(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFindFirstUnescaped(t *testing.T) {
	cases := []struct {
		in   string
		c    byte
		want int
	}{
		{"", ';', -1},
		{";", ';', 0},
		{`\;`, ';', -1},
		{`a\;b;c`, ';', 4},
		{";a", ';', 0},
	}
	for _, c := range cases {
		if got := FindFirstUnescaped(c.in, c.c); got != c.want {
			t.Errorf("FindFirstUnescaped(%q, %q) = %d, want %d", c.in, c.c, got, c.want)
		}
	}
}

func TestDelimitedBlockProcessor(t *testing.T) {
	p := NewDelimitedBlockProcessor("a=1;2;3", ';')
	var blocks []string
	for p.More() {
		blocks = append(blocks, p.Next())
	}
	want := []string{"a=1", "2", "3"}
	if len(blocks) != len(want) {
		t.Fatalf("got %v blocks, want %v", blocks, want)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, blocks[i], want[i])
		}
	}
	if p.ProcessedBlocks() != 3 {
		t.Errorf("ProcessedBlocks() = %d, want 3", p.ProcessedBlocks())
	}
	if p.ProcessedCharacters() != len("a=1;2;3") {
		t.Errorf("ProcessedCharacters() = %d, want %d", p.ProcessedCharacters(), len("a=1;2;3"))
	}
}

func TestDelimitedBlockProcessorEmptyBlocks(t *testing.T) {
	p := NewDelimitedBlockProcessor("a==b", '=')
	var blocks []string
	for p.More() {
		blocks = append(blocks, p.Next())
	}
	want := []string{"a", "", "b"}
	if len(blocks) != len(want) {
		t.Fatalf("got %v, want %v", blocks, want)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, blocks[i], want[i])
		}
	}
}

func TestDelimitedBlockProcessorEscapedDelimiter(t *testing.T) {
	p := NewDelimitedBlockProcessor(`a\;b;c`, ';')
	first := p.Next()
	if first != `a\;b` {
		t.Errorf("first block = %q, want %q", first, `a\;b`)
	}
	second := p.Next()
	if second != "c" {
		t.Errorf("second block = %q, want %q", second, "c")
	}
	if p.More() {
		t.Error("expected no more blocks")
	}
}

func TestCleanLine(t *testing.T) {
	in := "ok\tvalue\x01\x7f\x80done"
	want := "ok\tvaluedone"
	if got := CleanLine(in); got != want {
		t.Errorf("CleanLine(%q) = %q, want %q", in, got, want)
	}
}
