package report

import (
	"encoding/json"
	"io"
)

// JSON writes one object per block, newline delimited.
type JSON struct {
	enc *json.Encoder
}

func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

func (j *JSON) Write(b Block) error {
	if b.Lines == nil {
		b.Lines = []Line{}
	}
	return j.enc.Encode(b)
}

func (j *JSON) Close() error { return nil }
