package checklist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/uiverify/internal/errs"
)

// Parse decodes a YAML checklist and validates it. Durations are Go
// duration strings ("10s", "1m30s"). Unknown fields are rejected.
func Parse(data []byte) (*Checklist, error) {
	c, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads and parses a YAML checklist file. A checklist without a
// name takes the file's base name.
func LoadFile(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("read checklist %s", path), err)
	}
	c, err := decode(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Resolve returns a built-in checklist by name, or loads ref as a file
// when it looks like a path. An empty ref selects the smoke checklist.
func Resolve(ref string) (*Checklist, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = Smoke
	}
	if c, ok := Builtin(ref); ok {
		return c, nil
	}
	if looksLikePath(ref) {
		return LoadFile(ref)
	}
	return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown checklist %q (built-in: %s)", ref, strings.Join(BuiltinNames(), ", ")))
}

func decode(data []byte) (*Checklist, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Checklist
	if err := dec.Decode(&c); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "decode checklist", err)
	}
	return &c, nil
}

func looksLikePath(ref string) bool {
	ext := strings.ToLower(filepath.Ext(ref))
	return ext == ".yaml" || ext == ".yml" || strings.ContainsAny(ref, `/\`)
}
