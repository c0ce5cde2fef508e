package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultNames(t *testing.T) {
	names := DefaultNames()
	test.That(t, names, test.ShouldHaveLength, 21)
	test.That(t, names[0], test.ShouldEqual, "background")
	test.That(t, names[15], test.ShouldEqual, "person")
	test.That(t, names[20], test.ShouldEqual, "tvmonitor")
}

func TestParseNames(t *testing.T) {
	names := ParseNames("# header\n\ncat\n  dog  \r\n#skip\nbird")
	test.That(t, names, test.ShouldResemble, []string{"cat", "dog", "bird"})
	test.That(t, ParseNames(""), test.ShouldBeEmpty)
}

func TestLoadNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	test.That(t, os.WriteFile(path, []byte("a\nb\n"), 0o644), test.ShouldBeNil)

	names, err := LoadNames(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, []string{"a", "b"})

	empty := filepath.Join(dir, "empty.txt")
	test.That(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644), test.ShouldBeNil)
	_, err = LoadNames(empty)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadNames(filepath.Join(dir, "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCatalogPaletteParallel(t *testing.T) {
	c, err := New(DefaultNames(), 7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, 21)

	for id := 0; id < c.Len(); id++ {
		_, ok := c.Name(id)
		test.That(t, ok, test.ShouldBeTrue)
		col, ok := c.Color(id)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, col.A, test.ShouldEqual, uint8(255))
	}

	for _, id := range []int{-1, 21, 99} {
		_, ok := c.Name(id)
		test.That(t, ok, test.ShouldBeFalse)
		_, ok = c.Color(id)
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestCatalogSeedIsStable(t *testing.T) {
	a, err := New([]string{"x", "y", "z"}, 42)
	test.That(t, err, test.ShouldBeNil)
	b, err := New([]string{"x", "y", "z"}, 42)
	test.That(t, err, test.ShouldBeNil)
	for id := 0; id < 3; id++ {
		ca, _ := a.Color(id)
		cb, _ := b.Color(id)
		test.That(t, ca, test.ShouldResemble, cb)
	}
}

func TestCatalogCopiesNames(t *testing.T) {
	src := []string{"x", "y"}
	c, err := New(src, 1)
	test.That(t, err, test.ShouldBeNil)
	src[0] = "changed"
	name, _ := c.Name(0)
	test.That(t, name, test.ShouldEqual, "x")

	_, err = New(nil, 1)
	test.That(t, err, test.ShouldNotBeNil)
}
