package targets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/restock/internal/domain"
)

// File is the top-level structure of a targets YAML file.
//
//	targets:
//	  - id: dmit_special
//	    name: DMIT Special
//	    url: https://example.com/dmit-link
//	    outOfStockText: out of stock
//	    description: DMIT is back in stock.
type File struct {
	Targets []domain.Target `yaml:"targets"`
}

// Loader reads the target registry from a YAML file
type Loader struct {
	filePath string
}

// NewLoader creates a new target loader. An empty path selects the
// built-in targets.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load returns the validated target list.
func (l *Loader) Load() ([]domain.Target, error) {
	if l.filePath == "" {
		targets := Defaults()
		return targets, domain.ValidateTargets(targets)
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a targets document. Unknown keys are
// rejected so typos like "outofstocktext" do not silently disable a marker.
func Parse(data []byte) ([]domain.Target, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse targets yaml: %w", err)
	}

	for i := range file.Targets {
		t := &file.Targets[i]
		t.ID = strings.TrimSpace(t.ID)
		t.URL = strings.TrimSpace(t.URL)
	}

	if err := domain.ValidateTargets(file.Targets); err != nil {
		return nil, fmt.Errorf("invalid targets: %w", err)
	}
	return file.Targets, nil
}
