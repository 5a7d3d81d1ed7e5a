// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sumCombiner struct{}

func (sumCombiner) Combine(a, b interface{}) interface{} { return a.(int) + b.(int) }
func (sumCombiner) Absent() interface{}                  { return nil }
func (sumCombiner) IsAbsent(v interface{}) bool          { return v == nil }

func Test_StackerOutput_combine_identity(t *testing.T) {
	c := sumCombiner{}
	absent := StackerOutput{Answer: c.Absent()}
	five := StackerOutput{JobIDs: []int64{1}, Answer: 5}

	assert.Equal(t, 5, absent.combine(five, c).Answer, "combining with absent on the left yields the right operand")
	assert.Equal(t, 5, five.combine(absent, c).Answer, "combining with absent on the right yields the left operand")
}

func Test_StackerOutput_combine_associative(t *testing.T) {
	c := sumCombiner{}
	a := StackerOutput{JobIDs: []int64{1}, Answer: 1}
	b := StackerOutput{JobIDs: []int64{2}, Answer: 2}
	d := StackerOutput{JobIDs: []int64{3}, Answer: 3}

	left := a.combine(b, c).combine(d, c)
	right := a.combine(b.combine(d, c), c)

	assert.Equal(t, left.Answer, right.Answer)
	assert.ElementsMatch(t, []int64{1, 2, 3}, left.JobIDs)
}

func Test_missingPacket(t *testing.T) {
	m := missingPacket(7)
	assert.Equal(t, int64(7), m.JobID)
	assert.True(t, m.Missing)
}
