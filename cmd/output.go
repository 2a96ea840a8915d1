package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}

// writeOutput renders v as one indented JSON or YAML document.
func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return checkFormat(format)
	}
}

// streamWriter writes a sequence of values as NDJSON or as a YAML
// multi-document stream.
type streamWriter struct {
	json *json.Encoder
	yaml *yaml.Encoder
}

func newStreamWriter(w io.Writer, format string) (*streamWriter, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if strings.ToLower(format) == formatYAML {
		return &streamWriter{yaml: yaml.NewEncoder(w)}, nil
	}
	return &streamWriter{json: json.NewEncoder(w)}, nil
}

func (s *streamWriter) Write(v any) error {
	if s.yaml != nil {
		return s.yaml.Encode(v)
	}
	return s.json.Encode(v)
}

func (s *streamWriter) Close() error {
	if s.yaml != nil {
		return s.yaml.Close()
	}
	return nil
}
