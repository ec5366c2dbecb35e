package roomcode

import (
	"strings"
	"testing"
)

type sequenceSource struct {
	values []int
	pos    int
}

func (s *sequenceSource) Intn(n int) int {
	v := s.values[s.pos%len(s.values)] % n
	s.pos++
	return v
}

func TestGenerateShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := Generate()
		if len(code) != Length {
			t.Fatalf("Expected length %d, got %d (%q)", Length, len(code), code)
		}
		for _, r := range code {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("Code %q contains %q, not in the alphabet", code, r)
			}
		}
		if err := Validate(code); err != nil {
			t.Fatalf("Generated code %q failed validation: %v", code, err)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := NewGenerator(&sequenceSource{values: []int{0, 1, 2, 3, 4, 5}})
	if code := g.Generate(); code != "ABCDEF" {
		t.Errorf("Expected ABCDEF from the sequence source, got %q", code)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "valid", code: "ABC234"},
		{name: "too short", code: "ABC23", wantErr: true},
		{name: "too long", code: "ABC2345", wantErr: true},
		{name: "lowercase", code: "abc234", wantErr: true},
		{name: "ambiguous zero", code: "ABC230", wantErr: true},
		{name: "ambiguous letter O", code: "ABCO34", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
