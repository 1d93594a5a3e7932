// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads pipeline-tunable policy: the data/bss
// whitelist the Verifier consults, and the read-only pool name
// patterns the Section-symbol Replacer treats as silently acceptable.
//
// A project can extend the built-in defaults via a config file or
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Policy holds the whitelist knobs the pipeline consults.
type Policy struct {
	// DataWhitelist names ".data"/".bss" sections the Verifier
	// tolerates even though they aren't ".data.unlikely"/".data.once".
	DataWhitelist []string

	// ReadOnlyPoolPatterns are additional name prefixes the
	// section-symbol replacer treats like ".rodata*"/".data*" when
	// no symbol is found at a relocation's computed offset.
	ReadOnlyPoolPatterns []string
}

// defaultDataWhitelist names the two data sections the verifier
// always tolerates.
var defaultDataWhitelist = []string{".data.unlikely", ".data.once"}

// Load builds a Policy from defaults, an optional config file
// (.objdiff.yaml, searched in $HOME and the working directory), and
// OBJDIFF_-prefixed environment variables.
func Load(cfgFile string) (*Policy, error) {
	v := viper.New()
	v.SetDefault("data_whitelist", defaultDataWhitelist)
	v.SetDefault("readonly_pool_patterns", []string{})

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".objdiff")
	}

	v.SetEnvPrefix("OBJDIFF")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	return &Policy{
		DataWhitelist:        v.GetStringSlice("data_whitelist"),
		ReadOnlyPoolPatterns: v.GetStringSlice("readonly_pool_patterns"),
	}, nil
}

// AllowsDataSection reports whether name is on the whitelist, checked
// against both the two built-in exceptions and any policy-supplied
// additions.
func (p *Policy) AllowsDataSection(name string) bool {
	for _, n := range defaultDataWhitelist {
		if name == n {
			return true
		}
	}
	if p == nil {
		return false
	}
	for _, n := range p.DataWhitelist {
		if name == n {
			return true
		}
	}
	return false
}

// IsReadOnlyPool reports whether name matches one of the policy's
// additional read-only-pool prefixes.
func (p *Policy) IsReadOnlyPool(name string) bool {
	if p == nil {
		return false
	}
	for _, prefix := range p.ReadOnlyPoolPatterns {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
