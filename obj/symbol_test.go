// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCold(t *testing.T) {
	tests := []struct {
		name       string
		wantParent string
		wantOK     bool
	}{
		{"do_work", "", false},
		{"do_work.cold", "do_work", true},
		{"do_work.cold.0", "do_work", true},
		{"do_work.part.3", "do_work", true},
		{"foo.part.1.cold", "foo.part.1", true},
	}
	for _, tt := range tests {
		parent, ok := IsCold(tt.name)
		require.Equal(t, tt.wantOK, ok, "IsCold(%q)", tt.name)
		if tt.wantOK {
			require.Equal(t, tt.wantParent, parent, "IsCold(%q)", tt.name)
		}
	}
}

func TestSymTypeString(t *testing.T) {
	require.Equal(t, "FUNC", SymFunc.String())
	require.Equal(t, "OBJECT", SymObject.String())
	require.Equal(t, "SECTION", SymSection.String())
	require.Equal(t, "FILE", SymFile.String())
	require.Equal(t, "NOTYPE", SymNotype.String())
}

func TestBindingString(t *testing.T) {
	require.Equal(t, "LOCAL", BindLocal.String())
	require.Equal(t, "GLOBAL", BindGlobal.String())
	require.Equal(t, "WEAK", BindWeak.String())
}
