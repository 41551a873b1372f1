package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/schema"
)

// Config is the optional YAML configuration file. Command line flags take
// precedence over every field.
type Config struct {
	LogLevel      string            `yaml:"log_level"`
	Checksum      string            `yaml:"checksum"`
	FormatVersion string            `yaml:"format_version"`
	SkipLeaf      bool              `yaml:"skip_leaf"`
	SegmentSize   int64             `yaml:"segment_size"`
	Attributes    []AttributeConfig `yaml:"attributes"`
	DDL           string            `yaml:"ddl"`
}

type AttributeConfig struct {
	Name   string `yaml:"name"`
	Length int    `yaml:"length"`
	Align  string `yaml:"align"`
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: config file: %v", format.ErrFileOpen, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: config file %s: %v", format.ErrOptionSyntax, path, err)
	}
	return cfg, nil
}

// TableDef builds descriptors from the attributes list, falling back to the
// ddl statement. It returns nil when the file describes neither.
func (c *Config) TableDef() (*schema.TableDef, error) {
	if len(c.Attributes) > 0 {
		td := schema.NewTableDef("")
		for _, a := range c.Attributes {
			if len(a.Align) != 1 {
				return nil, fmt.Errorf("%w: attribute %q: alignment %q", format.ErrOptionSyntax, a.Name, a.Align)
			}
			err := td.AddAttribute(schema.Attribute{Name: a.Name, Length: a.Length, Align: format.Align(a.Align[0])})
			if err != nil {
				return nil, err
			}
		}
		return td, nil
	}
	if c.DDL != "" {
		return schema.ParseTableDefFromSQL(c.DDL)
	}
	return nil, nil
}
