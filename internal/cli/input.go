// input.go reads record data for setup and update commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slideforge/slideforge/internal/record"
)

// readRecord reads a JSON or YAML object from path, or from stdin when path
// is "-". Files ending in .yaml or .yml are parsed as YAML; everything else
// is tried as JSON first.
func readRecord(path string) (record.Map, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		var m record.Map
		if jsonErr := json.Unmarshal(data, &m); jsonErr == nil {
			return m, nil
		} else if ext == ".json" {
			return nil, fmt.Errorf("parsing %s: %w", path, jsonErr)
		}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m, ok := record.FromAny(raw).(record.Map)
	if !ok {
		return nil, fmt.Errorf("parsing %s: not an object", path)
	}
	return m, nil
}
