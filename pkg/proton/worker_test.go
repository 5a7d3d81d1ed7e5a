// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestHandle(lock sync.Locker) *WorkerHandle {
	return &WorkerHandle{name: "Worker_0001", q: newQueues(1), lock: lock}
}

func Test_WorkerHandle_Acquire_without_a_lock_configured(t *testing.T) {
	h := newTestHandle(nil)
	err := h.Acquire()
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func Test_WorkerHandle_Acquire_and_Release(t *testing.T) {
	h := newTestHandle(&sync.Mutex{})
	assert.NoError(t, h.Acquire())
	assert.NoError(t, h.Release())
}

func Test_WorkerHandle_double_Acquire(t *testing.T) {
	h := newTestHandle(&sync.Mutex{})
	a := assert.New(t)
	a.NoError(h.Acquire())

	err := h.Acquire()
	var argErr *ArgumentError
	a.ErrorAs(err, &argErr)

	a.NoError(h.Release())
}

func Test_WorkerHandle_Release_without_Acquire(t *testing.T) {
	h := newTestHandle(&sync.Mutex{})
	err := h.Release()
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func Test_WorkerHandle_Release_after_Release(t *testing.T) {
	h := newTestHandle(&sync.Mutex{})
	assert.NoError(t, h.Acquire())
	assert.NoError(t, h.Release())

	err := h.Release()
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func Test_WorkerHandle_Rand_and_RandN_are_seeded_deterministically(t *testing.T) {
	a := &WorkerHandle{name: "a", rnd: rand.New(rand.NewSource(42))}
	b := &WorkerHandle{name: "b", rnd: rand.New(rand.NewSource(42))}

	assert.Equal(t, a.Rand(), b.Rand())
	assert.Equal(t, a.RandN(5), b.RandN(5))
}

func Test_WorkerHandle_Communicate_enqueues_a_message(t *testing.T) {
	q := newQueues(1)
	h := &WorkerHandle{name: "Worker_0001", q: q}
	h.Communicate("hello")

	m := <-q.message
	assert.Equal(t, "Worker_0001", m.SenderName)
	assert.Equal(t, "hello", m.Text)
}
