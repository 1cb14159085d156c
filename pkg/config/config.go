// Package config loads YAML manifests into resource declarations.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// Manifest is a parsed manifest file: named resource declarations.
type Manifest struct {
	Resources map[string]*resource.Spec
}

// Names returns the declared resource names in sorted order so commands
// walk the manifest deterministically.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Resources))
	for name := range m.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// manifestDoc mirrors the YAML document shape.
type manifestDoc struct {
	Resources map[string]resourceDoc `yaml:"resources"`
}

type resourceDoc struct {
	Connection  transports.Config     `yaml:"connection"`
	Concurrency int                   `yaml:"concurrency"`
	Inputs      map[string]*string    `yaml:"inputs"`
	Create      commandDoc            `yaml:"create"`
	Destroy     commandDoc            `yaml:"destroy"`
	Read        map[string]readDoc    `yaml:"read"`
	Update      []updateDoc           `yaml:"update"`
}

type commandDoc struct {
	Cmd string            `yaml:"cmd"`
	Dir string            `yaml:"dir"`
	Env map[string]string `yaml:"env"`
}

type readDoc struct {
	commandDoc `yaml:",inline"`

	// StripTrailingNewline defaults to true when omitted.
	StripTrailingNewline *bool `yaml:"strip_trailing_newline"`
	Faillible            bool  `yaml:"faillible"`
}

type updateDoc struct {
	commandDoc `yaml:",inline"`

	Triggers []string `yaml:"triggers"`
	Reloads  []string `yaml:"reloads"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses manifest bytes. Unknown YAML keys are rejected so typos in
// manifests surface as load errors rather than silently ignored fields.
func Parse(data []byte) (*Manifest, error) {
	var doc manifestDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m := &Manifest{Resources: make(map[string]*resource.Spec, len(doc.Resources))}
	for name, rd := range doc.Resources {
		if name == "" {
			return nil, fmt.Errorf("failed to parse manifest: empty resource name")
		}
		m.Resources[name] = rd.toSpec()
	}
	return m, nil
}

func (d resourceDoc) toSpec() *resource.Spec {
	spec := &resource.Spec{
		ID:          value.Null[string](),
		Inputs:      value.Known(inputValues(d.Inputs)),
		Outputs:     value.Unknown[map[string]value.String](),
		Create:      d.Create.toCommand(),
		Destroy:     d.Destroy.toCommand(),
		Connection:  d.Connection,
		Concurrency: d.Concurrency,
	}
	if len(d.Read) > 0 {
		spec.Reads = make(map[string]resource.ReadSpec, len(d.Read))
		for key, rd := range d.Read {
			spec.Reads[key] = resource.ReadSpec{
				CommandSpec:          rd.toCommand(),
				StripTrailingNewline: rd.StripTrailingNewline == nil || *rd.StripTrailingNewline,
				Faillible:            rd.Faillible,
			}
		}
	}
	for _, ud := range d.Update {
		spec.Updates = append(spec.Updates, resource.UpdateSpec{
			CommandSpec: ud.toCommand(),
			Triggers:    ud.Triggers,
			Reloads:     ud.Reloads,
			Triggered:   value.Null[bool](),
		})
	}
	return spec
}

func (d commandDoc) toCommand() resource.CommandSpec {
	return resource.CommandSpec{Cmd: d.Cmd, Dir: d.Dir, Env: d.Env}
}

// inputValues maps YAML null entries to Null values and strings to Known.
func inputValues(in map[string]*string) map[string]value.String {
	out := make(map[string]value.String, len(in))
	for k, v := range in {
		if v == nil {
			out[k] = value.Null[string]()
		} else {
			out[k] = value.Known(*v)
		}
	}
	return out
}
