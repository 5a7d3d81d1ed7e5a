// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doubleTarget() *Target {
	return NewTarget(func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return args[0].(int) * 2, nil
	})
}

func intGenerator(n int) JobGenerator {
	return SliceGenerator(n, func(i int) ([]interface{}, map[string]interface{}) {
		return []interface{}{i}, nil
	})
}

func Test_AsyncMapper_completeness_and_identity(t *testing.T) {
	opts := Options{
		Target:     doubleTarget(),
		Jobs:       intGenerator(50),
		NumWorkers: 4,
	}
	m, err := NewAsyncMapper(opts)
	require.NoError(t, err)

	outputs, err := All(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outputs, 50)

	seen := make(map[int64]bool)
	for _, o := range outputs {
		seen[o.JobID] = true
		assert.Equal(t, int(o.JobID)*2, o.Answer)
	}
	assert.Len(t, seen, 50, "every jobid 0..49 must appear exactly once")
}

func Test_AsyncMapper_empty_generator(t *testing.T) {
	opts := Options{Target: doubleTarget(), Jobs: intGenerator(0), NumWorkers: 3}
	m, err := NewAsyncMapper(opts)
	require.NoError(t, err)

	outputs, err := All(context.Background(), m)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func Test_AsyncMapper_non_fatal_isolation(t *testing.T) {
	flaky := NewTarget(func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		i := args[0].(int)
		if i%10 == 0 {
			return nil, fmt.Errorf("unlucky job %d", i)
		}
		return i, nil
	})

	opts := Options{
		Target:           flaky,
		Jobs:             intGenerator(30),
		NumWorkers:       4,
		IgnoreExceptions: []ErrorKind{classify(fmt.Errorf(""))},
		ErrorLogPath:     filepath.Join(t.TempDir(), "errors.log"),
	}
	m, err := NewAsyncMapper(opts)
	require.NoError(t, err)

	outputs, err := All(context.Background(), m)
	require.NoError(t, err, "ignored errors must not tear down the run")

	// 30 jobs, jobids 0,10,20 fail and are ignored -> 27 successful outputs.
	assert.Len(t, outputs, 27)
}

func Test_AsyncMapper_fatal_termination_logs_error(t *testing.T) {
	boom := NewTarget(func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		i := args[0].(int)
		if i == 5 {
			return nil, fmt.Errorf("fatal at job %d", i)
		}
		return i, nil
	})

	logPath := filepath.Join(t.TempDir(), "errors.log")
	opts := Options{
		Target:       boom,
		Jobs:         intGenerator(200),
		NumWorkers:   4,
		ErrorLogPath: logPath,
	}
	m, err := NewAsyncMapper(opts)
	require.NoError(t, err)

	_, err = All(context.Background(), m)
	require.Error(t, err, "an unignored WorkerError must be fatal")

	var workerErr *WorkerError
	assert.ErrorAs(t, err, &workerErr)

	contents, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(contents), "fatal at job 5")
}

func Test_SyncMapper_restores_order(t *testing.T) {
	opts := Options{
		Target:     doubleTarget(),
		Jobs:       intGenerator(40),
		NumWorkers: 6,
	}
	m, err := NewSyncMapper(opts)
	require.NoError(t, err)
	m.Start(context.Background())

	var jobIDs []int64
	for {
		out, err, ok := m.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		jobIDs = append(jobIDs, out.JobID)
	}
	require.NoError(t, m.Close())

	require.True(t, sort.SliceIsSorted(jobIDs, func(i, j int) bool { return jobIDs[i] < jobIDs[j] }))
	require.Len(t, jobIDs, 40)
	for i, id := range jobIDs {
		assert.Equal(t, int64(i), id)
	}
}

func Test_SyncMapper_rejects_ignore_exceptions(t *testing.T) {
	opts := Options{
		Target:           doubleTarget(),
		Jobs:             intGenerator(1),
		IgnoreExceptions: []ErrorKind{"anything"},
	}
	_, err := NewSyncMapper(opts)
	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func Test_Mapper_missing_target_or_jobs(t *testing.T) {
	_, err := NewAsyncMapper(Options{Jobs: intGenerator(1)})
	assert.Error(t, err)

	_, err = NewAsyncMapper(Options{Target: doubleTarget()})
	assert.Error(t, err)
}
