package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
)

// fileConfig is the optional JSONC configuration file. Every field is a
// default that an explicitly set flag overrides.
//
//	{
//	  // reproducible builds
//	  "seed": 42,
//	  "overprovision": 1.25,
//	  "name": "keywords",
//	  "static": true,
//	}
type fileConfig struct {
	Seed            *uint64  `json:"seed"`
	Overprovision   *float64 `json:"overprovision"`
	MaxAttempts     *int     `json:"max_attempts"`
	RangeGrowth     *bool    `json:"range_growth"`
	KeyVerification *bool    `json:"key_verification"`
	Name            *string  `json:"name"`
	Static          *bool    `json:"static"`
	Workers         *int     `json:"workers"`
}

// loadConfig parses a JSONC file. Comments and trailing commas are
// allowed; unknown fields are rejected.
func loadConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (*fileConfig, error) {
	var cfg fileConfig
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// apply copies configured values into o for every flag not set on the
// command line.
func (c *fileConfig) apply(o *options, flags *pflag.FlagSet) {
	set := func(name string) bool { return !flags.Changed(name) }
	if c.Seed != nil && set("seed") {
		o.seed = *c.Seed
	}
	if c.Overprovision != nil && set("overprovision") {
		o.overprovision = *c.Overprovision
	}
	if c.MaxAttempts != nil && set("max-attempts") {
		o.maxAttempts = *c.MaxAttempts
	}
	if c.RangeGrowth != nil && set("no-range-growth") {
		o.noRangeGrowth = !*c.RangeGrowth
	}
	if c.KeyVerification != nil && set("no-verify") {
		o.noVerify = !*c.KeyVerification
	}
	if c.Name != nil && set("name") {
		o.name = *c.Name
	}
	if c.Static != nil && set("static") {
		o.static = *c.Static
	}
	if c.Workers != nil && set("workers") {
		o.workers = *c.Workers
	}
}
