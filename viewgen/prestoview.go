package viewgen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	prestoViewMarker = "Presto View:"
	commentClose     = "*/"
)

// ViewData is the payload Athena stores in a view's ViewOriginalText.
type ViewData struct {
	OriginalSQL string   `json:"originalSql" yaml:"originalSql"`
	Catalog     string   `json:"catalog" yaml:"catalog"`
	Schema      string   `json:"schema" yaml:"schema"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// EncodePrestoView renders v as "/* Presto View: <base64 json> */" with the
// JSON indented by two spaces.
func EncodePrestoView(v ViewData) (string, error) {
	return encodePrestoView(v, "  ")
}

func encodePrestoView(v ViewData, indent string) (string, error) {
	if v.Columns == nil {
		v.Columns = []Column{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode view payload: %w", err)
	}
	payload := bytes.TrimRight(buf.Bytes(), "\n")
	return "/* " + prestoViewMarker + " " + base64.StdEncoding.EncodeToString(payload) + " " + commentClose, nil
}

// DecodePrestoView extracts the payload from a view's original text.
func DecodePrestoView(text string) (ViewData, error) {
	start := strings.Index(text, prestoViewMarker)
	if start < 0 {
		return ViewData{}, errors.New("decode view: missing Presto View marker")
	}
	rest := text[start+len(prestoViewMarker):]
	end := strings.Index(rest, commentClose)
	if end < 0 {
		return ViewData{}, errors.New("decode view: unterminated comment")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest[:end]))
	if err != nil {
		return ViewData{}, fmt.Errorf("decode view: %w", err)
	}
	var v ViewData
	if err := json.Unmarshal(raw, &v); err != nil {
		return ViewData{}, fmt.Errorf("decode view payload: %w", err)
	}
	return v, nil
}
