// Package export writes recorded requests to JSON or YAML documents and reads
// them back.
package export

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/httpspy/packages/spy"
	"gopkg.in/yaml.v3"
)

// DocumentVersion is the version written to exported documents.
const DocumentVersion = 1

// ErrUnknownFormat is returned for a format or file extension that is
// neither JSON nor YAML.
var ErrUnknownFormat = errors.New("unknown recordings format")

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is the serialized form of a list of recordings.
type Document struct {
	Version     int         `json:"version" yaml:"version"`
	GeneratedAt time.Time   `json:"generatedAt" yaml:"generatedAt"`
	Recordings  []Recording `json:"recordings" yaml:"recordings"`
}

// Recording is one serialized request. Bodies that are not valid UTF-8 are
// stored base64 encoded with BodyEncoding set to "base64".
type Recording struct {
	ID           string              `json:"id" yaml:"id"`
	Timestamp    time.Time           `json:"timestamp" yaml:"timestamp"`
	Method       string              `json:"method" yaml:"method"`
	URL          string              `json:"url" yaml:"url"`
	Headers      map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body         string              `json:"body,omitempty" yaml:"body,omitempty"`
	BodyEncoding string              `json:"bodyEncoding,omitempty" yaml:"bodyEncoding,omitempty"`
}

// NewDocument converts recorded requests into a Document.
func NewDocument(requests []*spy.RecordedRequest) *Document {
	doc := &Document{
		Version:     DocumentVersion,
		GeneratedAt: time.Now().UTC(),
		Recordings:  make([]Recording, 0, len(requests)),
	}
	for _, r := range requests {
		doc.Recordings = append(doc.Recordings, NewRecording(r.Snapshot()))
	}
	return doc
}

// NewRecording converts a snapshot into its serialized form.
func NewRecording(snap spy.Snapshot) Recording {
	rec := Recording{
		ID:        snap.ID,
		Timestamp: snap.Timestamp,
		Method:    snap.Method,
		URL:       snap.URL,
		Headers:   snap.Header,
	}
	if utf8.Valid(snap.Body) {
		rec.Body = string(snap.Body)
	} else {
		rec.Body = base64.StdEncoding.EncodeToString(snap.Body)
		rec.BodyEncoding = "base64"
	}
	return rec
}

// Snapshot converts the recording back into snapshot data.
func (r Recording) Snapshot() (spy.Snapshot, error) {
	var body []byte
	switch {
	case r.BodyEncoding == "base64":
		decoded, err := base64.StdEncoding.DecodeString(r.Body)
		if err != nil {
			return spy.Snapshot{}, fmt.Errorf("recording %s: invalid base64 body: %w", r.ID, err)
		}
		body = decoded
	case r.Body != "":
		body = []byte(r.Body)
	}
	return spy.Snapshot{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Method:    r.Method,
		URL:       r.URL,
		Header:    r.Headers,
		Body:      body,
	}, nil
}

// Requests restores the recorded requests held by the document.
func (d *Document) Requests() ([]*spy.RecordedRequest, error) {
	result := make([]*spy.RecordedRequest, 0, len(d.Recordings))
	for _, rec := range d.Recordings {
		snap, err := rec.Snapshot()
		if err != nil {
			return nil, err
		}
		r, err := spy.Restore(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// Write encodes requests to w.
func Write(w io.Writer, format Format, requests []*spy.RecordedRequest) error {
	doc := NewDocument(requests)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteFile writes requests to path, choosing the format from its extension.
func WriteFile(path string, requests []*spy.RecordedRequest) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, format, requests); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Read decodes a document from r.
func Read(r io.Reader, format Format) ([]*spy.RecordedRequest, error) {
	var doc Document

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse recordings as JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse recordings as YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return doc.Requests()
}

// ReadFile reads a document from path, choosing the format from its extension.
func ReadFile(path string) ([]*spy.RecordedRequest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, format)
}
