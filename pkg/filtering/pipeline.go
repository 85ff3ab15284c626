package filtering

import (
	"fmt"
	"strings"

	"mialab/internal/models"
)

// Pipeline runs a sequence of filters, feeding each output to the next filter
type Pipeline struct {
	filters []Filter
	params  []Params
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends a filter and its parameters.
func (p *Pipeline) Add(filter Filter, params Params) {
	p.filters = append(p.filters, filter)
	p.params = append(p.params, params)
}

// SetParams replaces the parameters of the filter at index.
func (p *Pipeline) SetParams(index int, params Params) error {
	if index < 0 || index >= len(p.filters) {
		return fmt.Errorf("filter index %d out of range [0, %d)", index, len(p.filters))
	}
	p.params[index] = params
	return nil
}

// Len returns the number of filters.
func (p *Pipeline) Len() int {
	return len(p.filters)
}

// Execute runs every filter in order. The first error aborts the pipeline.
func (p *Pipeline) Execute(img *models.Image) (*models.Image, error) {
	for i, filter := range p.filters {
		out, err := filter.Execute(img, p.params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name(filter), err)
		}
		img = out
	}
	return img, nil
}

func (p *Pipeline) String() string {
	var b strings.Builder
	b.WriteString("Pipeline:\n")
	for i, filter := range p.filters {
		fmt.Fprintf(&b, " %d: %s\n", i, name(filter))
	}
	return b.String()
}

// name returns the filter name without the trailing ":\n" of its String form.
func name(f Filter) string {
	return strings.TrimRight(f.String(), ":\n")
}
