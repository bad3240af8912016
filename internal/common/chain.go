package common

import (
	"fmt"
	"strings"
)

// DefaultChainDepth bounds how many errors a diagnostic chain keeps.
const DefaultChainDepth = 5

// Chain is a bounded diagnostic error chain. Callers push the innermost
// error first and each wrapping cause after it; pushes past the capacity
// are dropped and flagged instead of growing the chain.
//
// Decoders never touch this, it belongs to the orchestration layer that
// turns "checksum mismatch" into "could not identify the boot device".
type Chain struct {
	errs      []error
	depth     int
	truncated bool
}

// NewChain builds a chain holding at most depth errors. Non-positive
// depth means DefaultChainDepth.
func NewChain(depth int) *Chain {
	if depth <= 0 {
		depth = DefaultChainDepth
	}
	return &Chain{depth: depth}
}

// Push records err on top of the chain, leaf first.
func (c *Chain) Push(err error) {
	if len(c.errs) == c.depth {
		c.truncated = true
		return
	}
	c.errs = append(c.errs, err)
}

func (c *Chain) Len() int {
	return len(c.errs)
}

func (c *Chain) Truncated() bool {
	return c.truncated
}

func (c *Chain) Clear() {
	c.errs = c.errs[:0]
	c.truncated = false
}

// String renders the chain leaf to root.
func (c *Chain) String() string {
	return c.render(false)
}

// RootToLeaf renders the chain outermost error first.
func (c *Chain) RootToLeaf() string {
	return c.render(true)
}

func (c *Chain) render(rootFirst bool) string {
	var b strings.Builder
	b.WriteString("Error:\n")

	sep := "Causing:"
	if rootFirst {
		sep = "Due to:"
	}

	for i := range c.errs {
		err := c.errs[i]
		if rootFirst {
			err = c.errs[len(c.errs)-1-i]
		}
		fmt.Fprintf(&b, "%v\n", err)
		if i != len(c.errs)-1 {
			b.WriteString(sep + "\n")
		}
	}

	if c.truncated {
		fmt.Fprintf(&b, "error chain truncated to %d, there's more\n", c.depth)
	}
	return b.String()
}
