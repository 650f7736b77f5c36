package spam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Options customises the detector heuristics.
type Options struct {
	MinMessageLength   int
	MaxMessageLength   int
	MaxLinks           int
	ForbiddenWords     []string
	SuspiciousPatterns []string
	HoneypotField      string
	HoneypotValue      string
}

// DefaultOptions returns the stock heuristic configuration.
func DefaultOptions() Options {
	return Options{
		MinMessageLength: 10,
		MaxMessageLength: 5000,
		MaxLinks:         5,
		ForbiddenWords: []string{
			"viagra", "cialis", "casino", "lottery", "jackpot",
			"bitcoin investment", "forex", "crypto profit", "make money fast",
			"earn cash", "work from home", "free offer", "limited time",
			"click here", "buy now", "act now", "winner", "congratulations",
			"guarantee", "no obligation", "risk free", "weight loss",
			"miracle cure", "cheap pills", "seo services",
		},
		SuspiciousPatterns: []string{
			`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
			`(?i)https?://\S+`,
			`\d{9,}`,
			`\$\d+`,
		},
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.MinMessageLength <= 0 {
		o.MinMessageLength = defaults.MinMessageLength
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = defaults.MaxMessageLength
	}
	if o.MaxLinks <= 0 {
		o.MaxLinks = defaults.MaxLinks
	}
	if len(o.ForbiddenWords) == 0 {
		o.ForbiddenWords = defaults.ForbiddenWords
	}
	if len(o.SuspiciousPatterns) == 0 {
		o.SuspiciousPatterns = defaults.SuspiciousPatterns
	}
	return o
}

const optionsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "min_message_length": {"type": "integer", "minimum": 1},
    "max_message_length": {"type": "integer", "minimum": 1},
    "max_links": {"type": "integer", "minimum": 0},
    "forbidden_words": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "suspicious_patterns": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "honeypot_field": {"type": "string"},
    "honeypot_value": {"type": "string"}
  }
}`

type optionsFile struct {
	MinMessageLength   *int     `json:"min_message_length"`
	MaxMessageLength   *int     `json:"max_message_length"`
	MaxLinks           *int     `json:"max_links"`
	ForbiddenWords     []string `json:"forbidden_words"`
	SuspiciousPatterns []string `json:"suspicious_patterns"`
	HoneypotField      *string  `json:"honeypot_field"`
	HoneypotValue      *string  `json:"honeypot_value"`
}

// LoadOptions returns the defaults overlaid with overrides from the given
// JSON file. The file is validated against a schema before it is applied, so
// a malformed override surfaces at startup rather than as odd scoring.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read spam options file: %w", err)
	}

	schema, err := jsonschema.CompileString("spam_options.json", optionsSchema)
	if err != nil {
		return Options{}, fmt.Errorf("compile spam options schema: %w", err)
	}

	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return Options{}, fmt.Errorf("parse spam options file: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return Options{}, fmt.Errorf("invalid spam options file: %w", err)
	}

	var file optionsFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return Options{}, fmt.Errorf("decode spam options file: %w", err)
	}

	if file.MinMessageLength != nil {
		opts.MinMessageLength = *file.MinMessageLength
	}
	if file.MaxMessageLength != nil {
		opts.MaxMessageLength = *file.MaxMessageLength
	}
	if file.MaxLinks != nil {
		opts.MaxLinks = *file.MaxLinks
	}
	if len(file.ForbiddenWords) > 0 {
		opts.ForbiddenWords = file.ForbiddenWords
	}
	if len(file.SuspiciousPatterns) > 0 {
		opts.SuspiciousPatterns = file.SuspiciousPatterns
	}
	if file.HoneypotField != nil {
		opts.HoneypotField = *file.HoneypotField
	}
	if file.HoneypotValue != nil {
		opts.HoneypotValue = *file.HoneypotValue
	}

	return opts, nil
}
