// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff

import "github.com/patchkit-dev/objdiff/obj"

// LinkKinship links .cold/.part subfunctions to the parent they were
// split from. A parent lookup that
// finds nothing is non-fatal: the child is simply left unlinked.
func LinkKinship(c *obj.Container) {
	for _, sym := range c.Symbols {
		if sym.Type != obj.SymFunc {
			continue
		}
		parentName, ok := obj.IsCold(sym.Name)
		if !ok {
			continue
		}
		candidates := c.SymbolsNamed(parentName)
		if len(candidates) == 0 {
			continue
		}
		parent := candidates[0]
		sym.Parent = parent
		parent.Children = append(parent.Children, sym)
	}
}
