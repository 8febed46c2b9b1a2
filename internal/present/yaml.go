// SPDX-License-Identifier: MIT
package present

import (
	"fmt"
	"io"

	"popdetect/internal/audio"

	"gopkg.in/yaml.v3"
)

// YAMLPresenter writes the report as a YAML document.
type YAMLPresenter struct {
	W io.Writer
}

var _ Presenter = (*YAMLPresenter)(nil)

func (p *YAMLPresenter) Present(r Report, _ *audio.Buffer) error {
	if r.Pops == nil {
		r.Pops = []float64{}
	}
	enc := yaml.NewEncoder(p.W)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
