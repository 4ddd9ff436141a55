package report

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML writes one document per block.
type YAML struct {
	enc *yaml.Encoder
}

func NewYAML(w io.Writer) *YAML {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAML{enc: enc}
}

func (y *YAML) Write(b Block) error {
	return y.enc.Encode(b)
}

func (y *YAML) Close() error {
	return y.enc.Close()
}
