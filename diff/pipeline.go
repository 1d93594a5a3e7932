// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff implements the ten-stage ELF object differencing
// pipeline: given a source object, a patched object,
// and the currently running binary, it produces a minimal relocatable
// object containing only what changed, or nothing at all if it
// didn't.
package diff

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/internal/ilog"
	"github.com/patchkit-dev/objdiff/obj"
	"github.com/patchkit-dev/objdiff/runelf"
)

// Inputs names the three input files and one output path a run
// requires.
type Inputs struct {
	SourcePath  string
	PatchedPath string
	RunningPath string
	OutputPath  string
}

// Result reports what Run did, for the CLI to turn into a diagnostic
// and exit code.
type Result struct {
	// Wrote is false when the pipeline found nothing to include.
	Wrote bool
	// PatchEntryCount is the number of entries in the synthesized
	// patch-entry table, for diagnostics.
	PatchEntryCount int
}

// Run executes all ten stages against in, logging through log and
// consulting policy for the Verifier's and section-symbol replacer's
// whitelists. A non-nil error is always one of input-validation,
// model-integrity, or patchability-violation; there is no
// partial-success return.
func Run(in Inputs, policy *config.Policy, log *ilog.Logger) (Result, error) {
	source, err := loadObject(in.SourcePath)
	if err != nil {
		return Result{}, err
	}
	patched, err := loadObject(in.PatchedPath)
	if err != nil {
		return Result{}, err
	}
	if err := validateHeaders(source, patched); err != nil {
		return Result{}, err
	}

	running, err := loadRunning(in.RunningPath)
	if err != nil {
		return Result{}, err
	}

	for _, c := range []*obj.Container{source, patched} {
		if err := Bundle(c); err != nil {
			return Result{}, err
		}
		LinkKinship(c)
		obj.SynthesizeSizes(c.Symbols)
	}
	if err := AnchorLocals(source, running); err != nil {
		return Result{}, err
	}
	for _, c := range []*obj.Container{source, patched} {
		if err := ReplaceSectionSymbols(c, policy); err != nil {
			return Result{}, err
		}
	}

	Correlate(source, patched)
	Compare(patched)

	if noChangesFound(patched) {
		log.Infof("no changed functions were found")
		return Result{}, nil
	}

	Include(patched)
	if err := Verify(patched, policy, log); err != nil {
		return Result{}, err
	}

	out, entries := Migrate(patched, running)
	SynthesizeMetadata(out, entries)

	if err := obj.Write(out, in.OutputPath); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", in.OutputPath, err)
	}
	return Result{Wrote: true, PatchEntryCount: len(entries)}, nil
}

func loadObject(path string) (*obj.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return obj.Load(f, filepath.Base(path))
}

func loadRunning(path string) (*runelf.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return runelf.Load(ef)
}

// validateHeaders enforces the cross-object header-agreement rule and
// the "zero program headers" requirement. debug/elf's decoded
// FileHeader doesn't expose e_flags/e_ehsize/e_phentsize/e_shentsize
// directly (that raw layout lives behind the external ELF
// reader/writer this engine builds on); the fields it does expose --
// class, data encoding, OS ABI, ABI version, type, machine, version,
// entry point -- are checked here, along with program-header count.
func validateHeaders(source, patched *obj.Container) error {
	sh, ph := source.Header, patched.Header
	mismatches := []string{}
	if sh.Class != ph.Class {
		mismatches = append(mismatches, "e_ident[EI_CLASS]")
	}
	if sh.Data != ph.Data {
		mismatches = append(mismatches, "e_ident[EI_DATA]")
	}
	if sh.OSABI != ph.OSABI {
		mismatches = append(mismatches, "e_ident[EI_OSABI]")
	}
	if sh.ABIVersion != ph.ABIVersion {
		mismatches = append(mismatches, "e_ident[EI_ABIVERSION]")
	}
	if sh.Version != ph.Version {
		mismatches = append(mismatches, "e_version")
	}
	if sh.Type != ph.Type {
		mismatches = append(mismatches, "e_type")
	}
	if sh.Machine != ph.Machine {
		mismatches = append(mismatches, "e_machine")
	}
	if sh.Entry != ph.Entry {
		mismatches = append(mismatches, "e_entry")
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%s and %s disagree on %v", source.Name, patched.Name, mismatches)
	}
	if source.ProgramHeaderCount != 0 {
		return fmt.Errorf("%s: relocatable object must have zero program headers, has %d", source.Name, source.ProgramHeaderCount)
	}
	if patched.ProgramHeaderCount != 0 {
		return fmt.Errorf("%s: relocatable object must have zero program headers, has %d", patched.Name, patched.ProgramHeaderCount)
	}
	return nil
}

// noChangesFound reports the no-op scenario: true when the Includer
// would have nothing to pull in.
func noChangesFound(patched *obj.Container) bool {
	for _, sym := range patched.Symbols {
		if sym.Type == obj.SymFunc && sym.Status == obj.StatusChanged {
			return false
		}
		if sym.Status == obj.StatusNew && sym.Binding == obj.BindGlobal && sym.Section != nil {
			return false
		}
	}
	return true
}
