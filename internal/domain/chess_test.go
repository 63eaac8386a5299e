package domain

import "testing"

func TestParseSquare(t *testing.T) {
	cases := map[string]Square{"a1": 0, "h1": 7, "e4": 28, "h8": 63}
	for in, want := range cases {
		got, err := ParseSquare(in)
		if err != nil || got != want {
			t.Fatalf("ParseSquare(%s) = %d, %v want %d", in, got, err, want)
		}
		if got.String() != in {
			t.Fatalf("String() = %s want %s", got.String(), in)
		}
	}
	for _, bad := range []string{"", "i1", "a9", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("ParseSquare(%q) should fail", bad)
		}
	}
	if NoSquare.String() != "-" {
		t.Fatalf("NoSquare = %s", NoSquare.String())
	}
}

func TestParseUCI(t *testing.T) {
	from, to, promo, err := ParseUCI(" E7E8Q ")
	if err != nil || from.String() != "e7" || to.String() != "e8" || promo != Queen {
		t.Fatalf("ParseUCI = %s %s %v %v", from, to, promo, err)
	}
	for _, bad := range []string{"e2", "e2e4k", "e2e4p", "z2e4"} {
		if _, _, _, err := ParseUCI(bad); err == nil {
			t.Fatalf("ParseUCI(%q) should fail", bad)
		}
	}
	mv := Move{From: 12, To: 28, Color: White}
	if mv.UCI() != "e2e4" || mv.IsCapture() {
		t.Fatalf("move = %s capture=%v", mv.UCI(), mv.IsCapture())
	}
}

func TestColorAndResult(t *testing.T) {
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Fatalf("Opponent broken")
	}
	if White.Sign() != 1 || Black.Sign() != -1 {
		t.Fatalf("Sign broken")
	}
	if c, err := ParseColor("B"); err != nil || c != Black {
		t.Fatalf("ParseColor = %s %v", c, err)
	}
	if _, err := ParseColor("red"); err == nil {
		t.Fatalf("ParseColor(red) should fail")
	}
	if WinFor(Black) != BlackWin || BlackWin.Winner() != Black || Draw.Winner() != "" {
		t.Fatalf("result helpers broken")
	}
	if NoResult.PGN() != "*" || Draw.PGN() != "1/2-1/2" {
		t.Fatalf("PGN tokens broken")
	}
	if !GameStalemate.Terminal() || GameCheck.Terminal() {
		t.Fatalf("Terminal broken")
	}
}
