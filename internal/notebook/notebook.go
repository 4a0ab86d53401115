// Package notebook runs named map-building steps in order and collects their
// output into a single rendered document.
package notebook

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/leafmap"
)

// Step builds one section of the document.
type Step struct {
	Name    string
	Heading string
	Text    string
	Build   func(ctx context.Context) (*leafmap.Map, error)
}

// Run executes steps sequentially and stops at the first failure. Steps with
// a nil Build contribute prose only.
func Run(ctx context.Context, title string, steps ...Step) (*leafmap.Document, error) {
	doc := &leafmap.Document{Title: title}
	log := zap.L().With(zap.String("document", title))

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "notebook: before step %q", s.Name)
		}

		section := leafmap.Section{Heading: s.Heading, Text: s.Text}
		if s.Build != nil {
			start := time.Now()
			log.Info("notebook: step started", zap.Int("step", i+1), zap.String("name", s.Name))
			m, err := s.Build(ctx)
			if err != nil {
				log.Error("notebook: step failed", zap.String("name", s.Name), zap.Error(err))
				return nil, eris.Wrapf(err, "notebook: step %q", s.Name)
			}
			section.Map = m
			log.Info("notebook: step finished",
				zap.String("name", s.Name),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}

// Maps returns the maps of a document in order.
func Maps(doc *leafmap.Document) []*leafmap.Map {
	var out []*leafmap.Map
	for _, s := range doc.Sections {
		if s.Map != nil {
			out = append(out, s.Map)
		}
	}
	return out
}
