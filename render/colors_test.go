package render

import "testing"

func TestClassColorDeterministic(t *testing.T) {

	for _, class := range []int{0, 1, 7, 42, 500} {
		a := ClassColor(class)
		b := ClassColor(class)

		if a != b {
			t.Errorf("class %d returned colors %v and %v", class, a, b)
		}
	}
}

func TestClassColorDistinctNeighbours(t *testing.T) {

	if ClassColor(0) == ClassColor(1) {
		t.Errorf("adjacent classes share a color")
	}
}

func TestClassColorWraps(t *testing.T) {

	if ClassColor(2) != ClassColor(2+len(classColors)) {
		t.Errorf("color palette does not wrap on class index")
	}

	// negative classes must not panic
	_ = ClassColor(-3)
}
