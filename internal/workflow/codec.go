package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pepperonas/Affentanz/internal/models"
)

var (
	// ErrMalformedDocument is returned when a document cannot be parsed or
	// does not have the shape of a workflow.
	ErrMalformedDocument = errors.New("malformed workflow document")

	// ErrUnsupportedSchemaVersion is returned for documents written by a
	// newer schema than this build understands.
	ErrUnsupportedSchemaVersion = errors.New("unsupported workflow schema version")
)

// Format is a workflow document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported workflow file extension %q", filepath.Ext(path))
	}
}

// ParseFormat parses a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown workflow format %q", s)
	}
}

// Serialize encodes a workflow. Output is deterministic and always carries
// the workflow's schema version, which must be one this build understands.
func Serialize(wf *models.Workflow, format Format) ([]byte, error) {
	data, err := marshalJSON(wf)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON, "":
		return data, nil
	case FormatYAML:
		return jsonToYAML(data)
	default:
		return nil, fmt.Errorf("unknown workflow format %q", format)
	}
}

// Deserialize decodes a workflow document and validates every action.
func Deserialize(data []byte, format Format) (*models.Workflow, error) {
	switch format {
	case FormatJSON, "":
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	default:
		return nil, fmt.Errorf("unknown workflow format %q", format)
	}
	return unmarshalJSON(data)
}

func marshalJSON(wf *models.Workflow) ([]byte, error) {
	if wf == nil {
		return nil, fmt.Errorf("serialize workflow: workflow is required")
	}
	if wf.SchemaVersion < 1 || wf.SchemaVersion > models.CurrentSchemaVersion {
		return nil, fmt.Errorf("serialize workflow: %w: schemaVersion must be between 1 and %d, got %d",
			models.ErrInvalidParameter, models.CurrentSchemaVersion, wf.SchemaVersion)
	}

	doc := document{
		SchemaVersion: wf.SchemaVersion,
		Name:          wf.Name,
		Actions:       make([]json.RawMessage, 0, len(wf.Actions)),
	}
	if !wf.CreatedAt.IsZero() {
		doc.CreatedAt = wf.CreatedAt.UTC().Format(createdAtLayout)
	}
	if wf.Settings != (models.Settings{}) {
		doc.Settings = &settingsDocument{Loop: wf.Settings.Loop, LoopPauseMs: wf.Settings.LoopPauseMs}
	}

	for i, a := range wf.Actions {
		encoded, err := encodeAction(a)
		if err != nil {
			return nil, fmt.Errorf("serialize workflow: actions[%d]: %w", i, err)
		}
		raw, err := json.Marshal(encoded)
		if err != nil {
			return nil, fmt.Errorf("serialize workflow: actions[%d]: %w", i, err)
		}
		doc.Actions = append(doc.Actions, raw)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize workflow: %w", err)
	}
	return append(data, '\n'), nil
}

func unmarshalJSON(data []byte) (*models.Workflow, error) {
	var head struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if head.SchemaVersion == nil {
		return nil, fmt.Errorf("%w: schemaVersion is required", ErrMalformedDocument)
	}
	if *head.SchemaVersion > models.CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d (newest supported is %d)",
			ErrUnsupportedSchemaVersion, *head.SchemaVersion, models.CurrentSchemaVersion)
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	wf := &models.Workflow{
		Name:          doc.Name,
		SchemaVersion: doc.SchemaVersion,
		Actions:       make([]models.Action, 0, len(doc.Actions)),
	}
	if doc.CreatedAt != "" {
		created, err := time.Parse(createdAtLayout, doc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: createdAt: %v", ErrMalformedDocument, err)
		}
		wf.CreatedAt = created.UTC()
	}
	if doc.Settings != nil {
		wf.Settings = models.Settings{Loop: doc.Settings.Loop, LoopPauseMs: doc.Settings.LoopPauseMs}
	}

	for i, raw := range doc.Actions {
		action, err := decodeAction(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: actions[%d]: %v", ErrMalformedDocument, i, err)
		}
		wf.Actions = append(wf.Actions, action)
	}

	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if value == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	converted, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return converted, nil
}

// jsonToYAML re-emits a JSON document as block style YAML, keeping the key
// order of the JSON encoding.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("serialize workflow: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("serialize workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serialize workflow: %w", err)
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode, yaml.ScalarNode:
		n.Style = 0
	}
	for _, child := range n.Content {
		blockStyle(child)
	}
}
