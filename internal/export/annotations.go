package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cptaffe/exporthtml/internal/region"
)

// annotationDoc is one entry of an annotations file:
//
//   - start: 10
//     end: 14
//     comment: why not a map?
type annotationDoc struct {
	ID      string `yaml:"id,omitempty"`
	Start   int    `yaml:"start"`
	End     int    `yaml:"end"`
	Comment string `yaml:"comment"`
}

// ReadAnnotations decodes a YAML list of annotations.  Ordering and overlap
// are checked later by region.New.
func ReadAnnotations(r io.Reader) ([]region.Annotation, error) {
	var docs []annotationDoc
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	out := make([]region.Annotation, 0, len(docs))
	for i, d := range docs {
		if d.End <= d.Start {
			return nil, fmt.Errorf("annotations: entry %d: empty range [%d,%d)", i, d.Start, d.End)
		}
		out = append(out, region.Annotation{Start: d.Start, End: d.End, ID: d.ID, Comment: d.Comment})
	}
	return out, nil
}
