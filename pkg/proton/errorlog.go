// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// DefaultErrorLogPath is the append-only error log path,
// "protonerrors.log" in the current working directory, unless Options
// overrides it.
const DefaultErrorLogPath = "protonerrors.log"

// errorLog appends formatted WorkerError traces to a file. Only the
// controller writes it; workers only ever send WorkerErrors to OutputQ.
type errorLog struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	runID uuid.UUID
}

func newErrorLog(path string) *errorLog {
	if path == "" {
		path = DefaultErrorLogPath
	}
	return &errorLog{path: path, runID: uuid.New()}
}

func (l *errorLog) append(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("proton: opening error log %s: %w", l.path, err)
		}
		l.file = f
	}
	_, err := fmt.Fprintf(l.file, "[%s] %s\n", l.runID, text)
	return err
}

func (l *errorLog) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
