package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/replicate/replicate-client/pkg/replicate"
)

// checkFormat rejects output formats render does not know.
func checkFormat(format string) error {
	switch format {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, format)
	}
}

// render writes v as indented JSON or as YAML. YAML is produced from the
// JSON form so both formats share field names.
func render(w io.Writer, format string, v any) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case "yaml":
		var generic any
		if err := json.Unmarshal(bs, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err = fmt.Fprintln(w, string(bs))
		return err
	}
}

// parseInputs turns key=value arguments into a prediction input. Values
// that parse as JSON keep their JSON type, @path reads a local file as a
// data URL, and anything else is a string.
func parseInputs(args []string) (map[string]any, error) {
	input := map[string]any{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: input %q is not key=value", errUsage, arg)
		}
		switch {
		case strings.HasPrefix(value, "@"):
			dataURL, err := replicate.FileInput(value[1:])
			if err != nil {
				return nil, fmt.Errorf("input %s: %w", key, err)
			}
			input[key] = dataURL
		default:
			var decoded any
			if err := json.Unmarshal([]byte(value), &decoded); err == nil {
				input[key] = decoded
			} else {
				input[key] = value
			}
		}
	}
	return input, nil
}

// splitModel parses "owner/name".
func splitModel(s string) (owner, name string, err error) {
	ref, err := replicate.ParseVersion(s)
	if err != nil || !ref.IsModel() {
		return "", "", fmt.Errorf("%w: expected owner/name, got %q", errUsage, s)
	}
	return ref.Owner, ref.Name, nil
}

// splitVersion parses "owner/name:id".
func splitVersion(s string) (replicate.VersionRef, error) {
	ref, err := replicate.ParseVersion(s)
	if err != nil || ref.Owner == "" || ref.ID == "" {
		return replicate.VersionRef{}, fmt.Errorf("%w: expected owner/name:version, got %q", errUsage, s)
	}
	return ref, nil
}
