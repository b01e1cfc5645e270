// Package output renders command results and writes them to stdout or a file.
package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	// FormatZip is only valid for file bundles, which are written as received.
	FormatZip Format = "zip"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrZipNeedsOutput    = errors.New("zip format requires --output FILE")
)

// ParseFormat validates name. zip is accepted only when allowZip is set.
func ParseFormat(name string, allowZip bool) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatYAML:
		return f, nil
	case FormatZip:
		if allowZip {
			return f, nil
		}
	}
	valid := "json, text, yaml"
	if allowZip {
		valid += ", zip"
	}
	return "", fmt.Errorf("%w %q (valid: %s)", ErrUnsupportedFormat, name, valid)
}

// Formatter encodes values in one Format.
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(w io.Writer, format Format) *Formatter {
	return &Formatter{writer: w, format: format}
}

// Format encodes v. Values go through encoding/json first, so text and yaml
// output follow the same field names and order as json output.
func (f *Formatter) Format(v any) error {
	switch f.format {
	case FormatJSON, "":
		encoder := json.NewEncoder(f.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatText:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return flattenJSON(f.writer, data)
	case FormatYAML:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return jsonToYAML(f.writer, data)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, f.format)
	}
}

// Render returns v encoded in format.
func Render(v any, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewFormatter(&buf, format).Format(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flattenJSON writes one "path: value" line per scalar in document order.
// Empty objects and arrays print as {} and [].
func flattenJSON(w io.Writer, data []byte) error {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return fmt.Errorf("flattening json: %w", err)
	}
	bw := bufio.NewWriter(w)
	if err := flattenValue(bw, "", value, dataType); err != nil {
		return fmt.Errorf("flattening json: %w", err)
	}
	return bw.Flush()
}

func flattenValue(w *bufio.Writer, path string, value []byte, dataType jsonparser.ValueType) error {
	switch dataType {
	case jsonparser.Object:
		empty := true
		err := jsonparser.ObjectEach(value, func(key, child []byte, childType jsonparser.ValueType, _ int) error {
			empty = false
			name, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			if path != "" {
				name = path + "." + name
			}
			return flattenValue(w, name, child, childType)
		})
		if err != nil {
			return err
		}
		if empty {
			writeLine(w, path, "{}")
		}
	case jsonparser.Array:
		n := 0
		var childErr error
		_, err := jsonparser.ArrayEach(value, func(child []byte, childType jsonparser.ValueType, _ int, _ error) {
			if childErr == nil {
				childErr = flattenValue(w, path+"["+strconv.Itoa(n)+"]", child, childType)
			}
			n++
		})
		if err != nil {
			return err
		}
		if childErr != nil {
			return childErr
		}
		if n == 0 {
			writeLine(w, path, "[]")
		}
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return err
		}
		writeLine(w, path, escapeLineBreaks(s))
	default:
		// Numbers, booleans and null print as written.
		writeLine(w, path, string(value))
	}
	return nil
}

func writeLine(w *bufio.Writer, path, value string) {
	if path != "" {
		_, _ = w.WriteString(path)
		_, _ = w.WriteString(": ")
	}
	_, _ = w.WriteString(value)
	_ = w.WriteByte('\n')
}

var lineBreaks = strings.NewReplacer(`\`, `\\`, "\r\n", `\n`, "\n", `\n`, "\r", `\r`)

// escapeLineBreaks keeps multi-line values (descriptor content) on one line.
// Backslashes are doubled so a literal `\n` stays distinct from a newline.
func escapeLineBreaks(s string) string {
	return lineBreaks.Replace(s)
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key order.
func jsonToYAML(w io.Writer, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("converting to yaml: %w", err)
	}
	clearStyle(&doc)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return encoder.Close()
}

// clearStyle drops the flow and quoting styles inherited from JSON syntax so
// the encoder picks block style and quotes only where YAML needs it.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
