// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import (
	"testing"

	"github.com/patchkit-dev/objdiff/diff/config"
	"github.com/patchkit-dev/objdiff/internal/ilog"
	"github.com/patchkit-dev/objdiff/obj"
	"github.com/stretchr/testify/require"
)

func TestVerifyChangedSectionNotIncludedIsViolation(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSection(&obj.Section{Name: ".text.foo", Status: obj.StatusChanged, Include: false})

	err := Verify(patched, &config.Policy{}, ilog.Discard())
	require.Error(t, err)
	verr := err.(*VerifyError)
	require.Contains(t, verr.Violations, "changed section .text.foo was not selected for inclusion")
}

func TestVerifyGroupedChangedSectionIsViolation(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSection(&obj.Section{Name: ".text.foo", Status: obj.StatusChanged, Include: true, Grouped: true})

	err := Verify(patched, &config.Policy{}, ilog.Discard())
	require.Error(t, err)
	verr := err.(*VerifyError)
	require.Contains(t, verr.Violations, "changed section .text.foo is part of a section group")
}

func TestVerifyDataSectionWhitelistAllows(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSection(&obj.Section{Name: ".data.gstate", Status: obj.StatusChanged, Include: true})

	policy := &config.Policy{DataWhitelist: []string{".data.gstate"}}
	require.NoError(t, Verify(patched, policy, ilog.Discard()))
}

func TestVerifyDataSectionDefaultWhitelist(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSection(&obj.Section{Name: ".data.unlikely", Status: obj.StatusChanged, Include: true})

	require.NoError(t, Verify(patched, &config.Policy{}, ilog.Discard()))
}

func TestVerifyNoViolationsReturnsNil(t *testing.T) {
	patched := obj.NewContainer("pat.o")
	patched.AddSection(&obj.Section{Name: ".text.foo", Status: obj.StatusSame, Include: false})

	require.NoError(t, Verify(patched, &config.Policy{}, ilog.Discard()))
}
