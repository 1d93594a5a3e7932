// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainerAddSectionSymbol(t *testing.T) {
	c := NewContainer("test.o")

	s1 := c.AddSection(&Section{Name: ".text.foo"})
	s2 := c.AddSection(&Section{Name: ".text.bar"})
	require.Equal(t, 0, s1.Index)
	require.Equal(t, 1, s2.Index)
	require.Same(t, s1, c.Section(".text.foo"))
	require.Nil(t, c.Section(".text.missing"))

	sym1 := c.AddSymbol(&Symbol{Name: "foo", Type: SymFunc})
	sym2 := c.AddSymbol(&Symbol{Name: "foo", Type: SymObject})
	require.Equal(t, 0, sym1.Index)
	require.Equal(t, 1, sym2.Index)
	require.Equal(t, []*Symbol{sym1, sym2}, c.SymbolsNamed("foo"))
	require.Empty(t, c.SymbolsNamed("nope"))

	require.Same(t, c, s1.Container)
	require.Same(t, c, sym1.Container)
}

func TestContainerNullSymbol(t *testing.T) {
	c := NewContainer("test.o")
	c.AddSymbol(&Symbol{Name: "foo", Type: SymFunc})

	null := c.NullSymbol()
	require.Equal(t, 0, null.Index)
	require.Equal(t, "", null.Name)
	require.Equal(t, SymNotype, null.Type)
	require.Equal(t, 2, len(c.Symbols))
	require.Equal(t, 1, c.Symbols[1].Index)

	// Calling it again must not insert a second null symbol.
	again := c.NullSymbol()
	require.Same(t, null, again)
	require.Equal(t, 2, len(c.Symbols))
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "SAME", StatusSame.String())
	require.Equal(t, "CHANGED", StatusChanged.String())
	require.Equal(t, "NEW", StatusNew.String())
	require.Equal(t, "UNKNOWN", StatusUnknown.String())
}
