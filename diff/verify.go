// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/patchkit-dev/objdiff/asm"
	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/internal/ilog"
	"github.com/patchkit-dev/objdiff/obj"
)

// VerifyError collects every patchability violation found by Verify,
// reported together rather than failing fast on the first one.
type VerifyError struct {
	Violations []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%d patchability violation(s) found", len(e.Violations))
}

// Verify enforces the patchability rules against the included set
// patched.Include computed. Every violation is logged individually
// before a single summary error is returned.
func Verify(patched *obj.Container, policy *config.Policy, log *ilog.Logger) error {
	var violations []string

	for _, s := range patched.Sections {
		if s.Status == obj.StatusChanged && !s.Include {
			violations = append(violations, fmt.Sprintf("changed section %s was not selected for inclusion", s.Name))
		}
		if s.Status != obj.StatusSame && s.Grouped {
			violations = append(violations, fmt.Sprintf("changed section %s is part of a section group", s.Name))
		}
		if s.Status == obj.StatusNew && s.Type == elf.SHT_GROUP {
			violations = append(violations, fmt.Sprintf("new section group %s is not supported", s.Name))
		}
		if s.Include && s.Status != obj.StatusNew && isDataOrBSS(s.Name) && !policy.AllowsDataSection(s.Name) {
			violations = append(violations, fmt.Sprintf("data section %s selected for inclusion", s.Name))
		}
		if s.Include && s.RelocSection != nil && strings.HasPrefix(s.Name, ".text") {
			violations = append(violations, checkInstructionBoundaries(patched, s)...)
		}
	}

	if len(violations) == 0 {
		return nil
	}
	for _, v := range violations {
		log.Errorf("%s", v)
	}
	return &VerifyError{Violations: violations}
}

// checkInstructionBoundaries disassembles s and flags any relocation
// whose offset doesn't land on the start of a decoded instruction: a
// sign the section-symbol replacer or migrator computed a bad offset,
// beyond what the byte/relocation comparison in Compare can catch.
// This is an auxiliary sanity check, not one of the core patchability
// rules, so a section the disassembler can't handle is skipped silently
// rather than escalated: an architecture the disassembler doesn't cover must
// not block an otherwise-valid patch.
func checkInstructionBoundaries(c *obj.Container, s *obj.Section) []string {
	if c.Desc == nil || len(s.Payload) == 0 {
		return nil
	}
	boundaries, ok := asm.InstructionStarts(c.Desc.Arch(), s.Payload, 0)
	if !ok {
		return nil
	}

	var violations []string
	for _, r := range s.RelocSection.Relocations {
		if !boundaries[r.Offset] {
			violations = append(violations, fmt.Sprintf(
				"%s: relocation at offset %#x in %s does not align with any decoded instruction boundary",
				c.Name, r.Offset, s))
		}
	}
	return violations
}

func isDataOrBSS(name string) bool {
	if name == ".data.unlikely" || name == ".data.once" {
		return false
	}
	return strings.HasPrefix(name, ".data") || strings.HasPrefix(name, ".bss")
}
