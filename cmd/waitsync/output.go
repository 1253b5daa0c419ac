package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// report is anything a command prints.
type report interface {
	text(w io.Writer)
}

// render writes r in the configured output format.
func render(w io.Writer, format string, r report) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		return enc.Close()
	default:
		r.text(w)
		return nil
	}
}

func status(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
