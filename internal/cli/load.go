package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// loadDocument reads a YAML or JSON file and returns it as JSON.
func loadDocument(path string) (json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindIO, Path: path, Message: "reading document", Err: err}
	}

	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, &errs.Error{Kind: errs.KindConfigParse, Path: path, Message: err.Error(), Err: err}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindConfigParse, Path: path, Message: "document is not representable as JSON", Err: err}
	}

	return out, nil
}

// loadDynamicRanges reads a mapping of tensor name to [min, max].
func loadDynamicRanges(path string) (map[string]furiosa.DynamicRange, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindIO, Path: path, Message: "reading dynamic ranges", Err: err}
	}

	var raw map[string][]float64
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, &errs.Error{Kind: errs.KindConfigParse, Path: path, Message: err.Error(), Err: err}
	}

	ranges := make(map[string]furiosa.DynamicRange, len(raw))
	for name, pair := range raw {
		if len(pair) != 2 {
			return nil, &errs.Error{
				Kind:    errs.KindConfigParse,
				Path:    path,
				Message: fmt.Sprintf("range of %q must be [min, max], got %d values", name, len(pair)),
			}
		}
		ranges[name] = furiosa.DynamicRange{Min: pair[0], Max: pair[1]}
	}

	return ranges, nil
}

// readModel returns the model bytes and its base name.
func readModel(path string) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &errs.Error{Kind: errs.KindIO, Path: path, Message: "reading model", Err: err}
	}
	return b, filepath.Base(path), nil
}

// defaultOutput replaces the extension of model with ext.
func defaultOutput(model, ext string) string {
	base := strings.TrimSuffix(filepath.Base(model), filepath.Ext(model))
	return base + "." + ext
}

// splitTensors parses a comma separated list, dropping blanks.
func splitTensors(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
