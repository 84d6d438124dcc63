package utils

import (
	"testing"

	"github.com/ava-labs/libevm/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    common.Address
		wantErr bool
	}{
		{
			name:  "lowercase",
			input: "0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e",
			want:  common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"),
		},
		{
			name:  "checksummed",
			input: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
			want:  common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"),
		},
		{
			name:  "upper prefix and whitespace",
			input: " 0XB97EF9EF8734C71904D8002F8B6BC66DD9C48A6E ",
			want:  common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"),
		},
		{name: "no prefix", input: "b97ef9ef8734c71904d8002f8b6bc66dd9c48a6e", wantErr: true},
		{name: "short", input: "0x1234", wantErr: true},
		{name: "long", input: "0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e00", wantErr: true},
		{name: "not hex", input: "0xg97ef9ef8734c71904d8002f8b6bc66dd9c48a6e", wantErr: true},
		{name: "zero", input: "0x0000000000000000000000000000000000000000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSugaredLogger(t *testing.T) {
	t.Parallel()

	for _, verbose := range []bool{true, false} {
		log, err := NewSugaredLogger(verbose)
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, verbose, log.Desugar().Core().Enabled(-1))
	}
}
