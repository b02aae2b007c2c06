package fs

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestHash(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	doge := write("doge.jpg", "such wow")
	sameDoge := write("same-doge.jpg", "such wow")
	grumpy := write("grumpy-cat.jpg", "no")

	cases := []struct {
		name     string
		pathA    string
		pathB    string
		expected bool
	}{
		{
			name:     "hashing the same file twice returns the same value",
			pathA:    doge,
			pathB:    doge,
			expected: true,
		},
		{
			name:     "hashing two files with same content but different name returns the same value",
			pathA:    doge,
			pathB:    sameDoge,
			expected: true,
		},
		{
			name:     "hashing two different files returns different values",
			pathA:    doge,
			pathB:    grumpy,
			expected: false,
		},
	}

	for _, c := range cases {
		a, err := Hash(zap.NewNop(), c.pathA)
		if err != nil {
			t.Error(err)
		}
		b, err := Hash(zap.NewNop(), c.pathB)
		if err != nil {
			t.Error(err)
		}

		if equal := a == b; equal != c.expected {
			t.Errorf("%v\n\tExpected %v but got %v instead", c.name, c.expected, equal)
		}
	}
}
