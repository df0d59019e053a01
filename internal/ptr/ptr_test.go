package ptr_test

import (
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/ptr"
)

func TestRef(t *testing.T) {
	s := "sq-1"
	p := ptr.Ref(s)
	if p == nil {
		t.Fatal("Expected pointer to be non-nil")
	}
	if *p != s {
		t.Errorf("Expected %q, got %q", s, *p)
	}

	// Modifying the original must not leak into the pointer.
	s = "modified"
	if *p == s {
		t.Errorf("Pointer value should not change when original value is modified")
	}
}

func TestOr(t *testing.T) {
	tests := []struct {
		name     string
		p        *float64
		fallback float64
		want     float64
	}{
		{name: "nil uses fallback", p: nil, fallback: 1.5, want: 1.5},
		{name: "value wins", p: ptr.Ref(0.0), fallback: 1.5, want: 0},
		{name: "non-zero value wins", p: ptr.Ref(3.25), fallback: 1.5, want: 3.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ptr.Or(tt.p, tt.fallback); got != tt.want {
				t.Errorf("Or() = %v, want %v", got, tt.want)
			}
		})
	}
}
