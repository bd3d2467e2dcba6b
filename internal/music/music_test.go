package music

import "testing"

func mustParse(t *testing.T, s string) Key {
	t.Helper()
	k, ok := Parse(s)
	if !ok {
		t.Fatalf("Parse(%q) failed", s)
	}
	return k
}

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		root  int
		minor bool
	}{
		{"C", 0, false},
		{"G", 7, false},
		{"F#", 6, false},
		{"Bb", 10, false},
		{"Db", 1, false},
		{"Am", 9, true},
		{"Em", 4, true},
		{"C#m", 1, true},
		{"Bbm", 10, true},
		{"F#m", 6, true},
	}
	for _, c := range cases {
		k := mustParse(t, c.in)
		if k.Root != c.root || k.Minor != c.minor {
			t.Errorf("Parse(%q) = %+v, want root %d minor %v", c.in, k, c.root, c.minor)
		}
	}

	if _, ok := Parse("X"); ok {
		t.Error("Parse(X) should fail")
	}
	if _, ok := Parse(""); ok {
		t.Error("Parse empty should fail")
	}
}

func TestRelative(t *testing.T) {
	am := mustParse(t, "Am")
	c := mustParse(t, "C")
	if am.Relative() != c || c.Relative() != am {
		t.Error("Am <-> C relative pair broken")
	}

	em := mustParse(t, "Em")
	g := mustParse(t, "G")
	if em.Relative() != g || g.Relative() != em {
		t.Error("Em <-> G relative pair broken")
	}
}

func TestCompatible(t *testing.T) {
	am := mustParse(t, "Am")
	c := mustParse(t, "C")
	em := mustParse(t, "Em")
	g := mustParse(t, "G")

	if !Compatible(am, am) || !Compatible(am, c) || !Compatible(c, am) || !Compatible(em, g) {
		t.Error("relative/same keys must be compatible")
	}
	if Compatible(am, em) || Compatible(c, g) {
		t.Error("non-relative keys must not be compatible")
	}
}

func TestSemitonesToMatch(t *testing.T) {
	am := mustParse(t, "Am")
	c := mustParse(t, "C")
	em := mustParse(t, "Em")
	bm := mustParse(t, "Bm")

	if n := SemitonesToMatch(am, c); n != 0 {
		t.Errorf("Am->C = %d, want 0", n)
	}
	if n := SemitonesToMatch(am, em); n != -5 {
		t.Errorf("Am->Em = %d, want -5", n)
	}
	if n := SemitonesToMatch(em, am); n != 5 {
		t.Errorf("Em->Am = %d, want 5", n)
	}
	if n := SemitonesToMatch(am, bm); n != 2 {
		t.Errorf("Am->Bm = %d, want 2", n)
	}
}

func TestCamelot(t *testing.T) {
	am := mustParse(t, "Am")
	c := mustParse(t, "C")

	if s := am.CamelotString(); s != "8A" {
		t.Errorf("Am camelot = %s, want 8A", s)
	}
	if s := c.CamelotString(); s != "8B" {
		t.Errorf("C camelot = %s, want 8B", s)
	}
}

func TestString(t *testing.T) {
	if s := mustParse(t, "Bb").String(); s != "A#" {
		t.Errorf("Bb renders as %s, want A# (sharps normalization)", s)
	}
	if s := mustParse(t, "F#m").String(); s != "F#m" {
		t.Errorf("F#m renders as %s", s)
	}
}
