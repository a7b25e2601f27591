// Package countrycode resolves free-form country names to ISO 3166-1 alpha-2
// codes for the population registry.
package countrycode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var alpha2Re = regexp.MustCompile(`^[A-Z]{2}$`)

// Table is an immutable country name to alpha-2 mapping. Build it once at
// startup and share it.
type Table struct {
	exact  map[string]string
	folded map[string]string
}

// New builds a Table from a reference mapping, the built-in overrides and any
// extra overrides. Later sources win.
func New(reference, extra map[string]string) *Table {
	t := &Table{
		exact:  make(map[string]string, len(reference)+len(builtinOverrides)+len(extra)),
		folded: make(map[string]string, len(reference)+len(builtinOverrides)+len(extra)),
	}
	for _, src := range []map[string]string{reference, builtinOverrides, extra} {
		for name, code := range src {
			name = strings.TrimSpace(name)
			code = strings.ToUpper(strings.TrimSpace(code))
			if name == "" || code == "" {
				continue
			}
			t.exact[name] = code
			t.folded[strings.ToLower(name)] = code
		}
	}
	return t
}

// Load reads the reference CSV at referencePath and, when overridesPath is
// not empty, a YAML file of extra name: code overrides.
func Load(referencePath, overridesPath string) (*Table, error) {
	f, err := os.Open(referencePath)
	if err != nil {
		return nil, fmt.Errorf("open country reference: %w", err)
	}
	defer f.Close()

	reference, err := ParseReference(f)
	if err != nil {
		return nil, fmt.Errorf("parse country reference %s: %w", referencePath, err)
	}

	var extra map[string]string
	if overridesPath != "" {
		extra, err = loadOverrides(overridesPath)
		if err != nil {
			return nil, err
		}
	}

	return New(reference, extra), nil
}

// ParseReference reads a CSV with at least "name" and "alpha-2" columns.
func ParseReference(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	nameIdx, codeIdx := -1, -1
	for i, h := range header {
		switch strings.TrimPrefix(strings.TrimSpace(h), "\ufeff") {
		case "name":
			nameIdx = i
		case "alpha-2":
			codeIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, errors.New(`reference must have "name" and "alpha-2" columns`)
	}

	out := make(map[string]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if nameIdx >= len(rec) || codeIdx >= len(rec) {
			continue
		}
		out[rec[nameIdx]] = rec[codeIdx]
	}
	return out, nil
}

func loadOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country overrides: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse country overrides %s: %w", path, err)
	}
	for name, code := range overrides {
		if !alpha2Re.MatchString(strings.ToUpper(strings.TrimSpace(code))) {
			return nil, fmt.Errorf("country overrides %s: %q has invalid code %q", path, name, code)
		}
	}
	return overrides, nil
}

// Lookup returns the alpha-2 code for country. Exact names are tried first,
// then a case-insensitive match.
func (t *Table) Lookup(country string) (string, bool) {
	country = strings.TrimSpace(country)
	if country == "" {
		return "", false
	}
	if code, ok := t.exact[country]; ok {
		return code, true
	}
	code, ok := t.folded[strings.ToLower(country)]
	return code, ok
}

// Len returns the number of distinct names in the table.
func (t *Table) Len() int {
	return len(t.exact)
}
