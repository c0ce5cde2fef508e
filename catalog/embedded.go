package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

//go:embed voc.names
var embeddedNames string

// DefaultNames returns the class names compiled into the binary.
func DefaultNames() []string {
	return ParseNames(embeddedNames)
}

// LoadNames reads a class list from path, one name per line.
func LoadNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	names := ParseNames(string(data))
	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s has no class names", path)
	}
	return names, nil
}

// ParseNames splits a names file. Blank lines and lines starting with '#' are ignored.
func ParseNames(text string) []string {
	lines := lo.Map(strings.Split(text, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return lo.Filter(lines, func(line string, _ int) bool {
		return line != "" && !strings.HasPrefix(line, "#")
	})
}
