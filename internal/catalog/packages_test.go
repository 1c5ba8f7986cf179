package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	p, ok := Lookup("group-8")
	assert.True(t, ok)
	assert.Equal(t, 8, p.Sessions)
	assert.Equal(t, 30, p.ValidityDays)

	_, ok = Lookup("platinum")
	assert.False(t, ok)
}

func TestAllIsStableAndComplete(t *testing.T) {
	pkgs := All()
	assert.Len(t, pkgs, 7)
	assert.Equal(t, "single", pkgs[0].ID)

	// every listed package resolves through Lookup
	for _, p := range pkgs {
		got, ok := Lookup(p.ID)
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	pkgs := All()
	pkgs[0].Price = 1
	fresh := All()
	assert.NotEqual(t, 1.0, fresh[0].Price)
}
