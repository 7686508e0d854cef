package catalog

import (
	"sort"
	"testing"
)

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2.mp3", "10.mp3", true},
		{"10.mp3", "2.mp3", false},
		{"1.mp3", "1.mp3", false},
		{"chapter 2", "chapter 10", true},
		{"Chapter 2", "chapter 10", true}, // case-insensitive
		{"a", "b", true},
		{"002.mp3", "2.mp3", false}, // leading zeros compare equal
		{"part1", "part1b", true},
	}

	for _, tt := range tests {
		if got := naturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("naturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNaturalSortOrder(t *testing.T) {
	names := []string{"10.mp3", "2.mp3", "1.mp3", "21.mp3", "3.mp3"}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	want := []string{"1.mp3", "2.mp3", "3.mp3", "10.mp3", "21.mp3"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, names)
		}
	}
}
