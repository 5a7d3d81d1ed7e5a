// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Descriptor
		wantErr bool
	}{
		{name: "single_core", input: "3", want: Descriptor{Start: 3, End: 3}},
		{name: "range", input: "2-5", want: Descriptor{Start: 2, End: 5}},
		{name: "empty_is_invalid", input: "", wantErr: true},
		{name: "negative_core_is_invalid", input: "-1", wantErr: true},
		{name: "descending_range_is_invalid", input: "5-2", wantErr: true},
		{name: "non_numeric_is_invalid", input: "a-b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
