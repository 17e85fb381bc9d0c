// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(2, 3, 4)
	assert.True(t, s.Ok())
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, 24, s.Size())
	assert.False(t, s.IsScalar())

	assert.Panics(t, func() { Make(2, 0) })
	assert.Panics(t, func() { Make(-1) })
}

func TestScalar(t *testing.T) {
	s := Scalar()
	assert.True(t, s.Ok())
	assert.True(t, s.IsScalar())
	assert.Equal(t, 0, s.Rank())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, "(scalar)", s.String())
}

func TestZeroValueIsInvalid(t *testing.T) {
	var s Shape
	assert.False(t, s.Ok())
	assert.False(t, s.IsScalar())
}

func TestDim(t *testing.T) {
	s := Make(2, 3, 4)
	assert.Equal(t, 2, s.Dim(0))
	assert.Equal(t, 4, s.Dim(2))
	assert.Equal(t, 4, s.Dim(-1))
	assert.Equal(t, 2, s.Dim(-3))
	assert.Panics(t, func() { s.Dim(3) })
	assert.Panics(t, func() { s.Dim(-4) })
}

func TestEqAndClone(t *testing.T) {
	s := Make(2, 3)
	assert.True(t, s.Eq(Make(2, 3)))
	assert.False(t, s.Eq(Make(3, 2)))
	assert.False(t, s.Eq(Make(2, 3, 1)))

	clone := s.Clone()
	require.True(t, s.Eq(clone))
	clone.Dimensions[0] = 9
	assert.Equal(t, 2, s.Dimensions[0])
}

func TestHasShape(t *testing.T) {
	var hs HasShape = Make(5)
	assert.True(t, hs.Shape().Eq(Make(5)))
}
