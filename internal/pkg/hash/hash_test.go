package hash

import (
	"strings"
	"testing"
)

func TestDigestKnownValue(t *testing.T) {
	// SHA256 of an empty input
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := NewDigest().Sum(); got != want {
		t.Errorf("NewDigest().Sum() = %s, want %s", got, want)
	}
}

func TestDigestDeterministic(t *testing.T) {
	a := NewDigest().Int(1).Int(2).Float(0.5).String("phones").Sum()
	b := NewDigest().Int(1).Int(2).Float(0.5).String("phones").Sum()
	if a != b {
		t.Errorf("digest not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Sum() length = %d, want 64", len(a))
	}
	for _, c := range a {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("Sum() contains non-hex character: %c", c)
		}
	}
}

func TestDigestDistinguishesFields(t *testing.T) {
	tests := []struct {
		name string
		a, b *Digest
	}{
		{"order", NewDigest().Int(1).Int(2), NewDigest().Int(2).Int(1)},
		{"string boundaries", NewDigest().String("ab").String("c"), NewDigest().String("a").String("bc")},
		{"float", NewDigest().Float(0.1), NewDigest().Float(0.2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Sum() == tt.b.Sum() {
				t.Errorf("digests should differ")
			}
		})
	}
}

func TestDigestShort(t *testing.T) {
	d := NewDigest().String("x")
	if got := d.Short(16); len(got) != 16 || !strings.HasPrefix(d.Sum(), got) {
		t.Errorf("Short(16) = %q", got)
	}
	if got := d.Short(100); got != d.Sum() {
		t.Errorf("Short(100) = %q, want full digest", got)
	}
}
