package leafmap

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates/document.html.tmpl
var content embed.FS

// LeafletVersion is the Leaflet release loaded from the CDN.
const LeafletVersion = "1.9.4"

// Document is a titled page of maps with optional prose between them.
type Document struct {
	Title    string
	Sections []Section
}

// Section is one block of a document. Map may be nil for prose-only sections.
type Section struct {
	Heading string
	Text    string
	Map     *Map
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var documentTmpl = template.Must(template.New("document.html.tmpl").Funcs(template.FuncMap{
	"toJSON":         toJSON,
	"leafletVersion": func() string { return LeafletVersion },
}).ParseFS(content, "templates/document.html.tmpl"))

// Render writes doc as a standalone HTML page. Every map is validated first;
// nothing is written if any map is invalid.
func Render(w io.Writer, doc Document) error {
	for _, s := range doc.Sections {
		if s.Map == nil {
			continue
		}
		if err := s.Map.Validate(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, doc); err != nil {
		return eris.Wrap(err, "leafmap: execute template")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return eris.Wrap(err, "leafmap: write document")
	}
	return nil
}

// DumpConfig writes the maps' configuration as YAML. Bulk data (markers,
// coordinates, features) is omitted.
func DumpConfig(w io.Writer, maps ...*Map) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(maps); err != nil {
		return eris.Wrap(err, "leafmap: encode config")
	}
	return eris.Wrap(enc.Close(), "leafmap: encode config")
}
