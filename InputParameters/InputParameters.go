package InputParameters

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/notargets/fdtria/pipeline"
)

// Parameters of a batch of construction runs obtained from the YAML input file. Every entry
// of Runs starts from Defaults and overrides the keys it names.
type InputParameters struct {
	Title    string            `json:"Title"`
	Defaults pipeline.Params   `json:"Defaults"`
	Runs     []json.RawMessage `json:"Runs"`
}

func (ip *InputParameters) Parse(data []byte) error {
	ip.Defaults = pipeline.DefaultParams()
	return yaml.Unmarshal(data, ip)
}

// Params returns the parameters of every run in file order
func (ip *InputParameters) Params() (runs []pipeline.Params, err error) {
	runs = make([]pipeline.Params, len(ip.Runs))
	for i, raw := range ip.Runs {
		runs[i] = ip.Defaults
		if err = json.Unmarshal(raw, &runs[i]); err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
	}
	return
}

func (ip *InputParameters) Print(w io.Writer) {
	d := ip.Defaults
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t\t= Source\n", d.Source)
	fmt.Fprintf(w, "[%s]\t\t\t= Partitioner\n", d.Partitioner)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Ranks\n", d.Ranks)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Polynomial Degree\n", d.Degree)
	if d.OutputDir != "" {
		fmt.Fprintf(w, "[%s/%s, %s/%s]\t= Output\n", d.OutputDir, d.Prefix, d.OutputDir, d.SourcePrefix)
	}
	fmt.Fprintf(w, "[%d]\t\t\t\t= Runs\n", len(ip.Runs))
}
