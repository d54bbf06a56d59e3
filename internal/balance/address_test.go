package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAddress(t *testing.T) {
	testCases := []struct {
		name       string
		credential string
		want       string
		wantErr    error
	}{
		{
			name:       "private key with prefix",
			credential: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
			want:       "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		},
		{
			name:       "private key without prefix",
			credential: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
			want:       "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		},
		{
			name:       "private key one",
			credential: "0000000000000000000000000000000000000000000000000000000000000001",
			want:       "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{
			name:       "lowercase address is checksummed",
			credential: "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf",
			want:       "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{
			name:       "checksummed address with whitespace",
			credential: "  0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf ",
			want:       "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{
			name:       "bad checksum",
			credential: "0x7E5F4552091A69125d5DfCb7b8C2659029395BDf",
			wantErr:    ErrBadChecksum,
		},
		{
			name:       "zero key",
			credential: "0000000000000000000000000000000000000000000000000000000000000000",
			wantErr:    ErrInvalidPrivateKey,
		},
		{
			name:       "key above curve order",
			credential: "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff",
			wantErr:    ErrInvalidPrivateKey,
		},
		{
			name:       "address without prefix",
			credential: "2791bca1f2de4661ed88a30c99a7a9449aa84174",
			want:       "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		},
		{
			name:       "checksummed address without prefix",
			credential: "7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
			want:       "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		},
		{name: "bad checksum without prefix", credential: "7E5F4552091A69125d5DfCb7b8C2659029395BDf", wantErr: ErrBadChecksum},
		{name: "too short", credential: "0x7e5f4552091a69125d5dfcb7b8c2659029395b", wantErr: ErrUnrecognizedCredential},
		{name: "not hex", credential: "0xzz5f4552091a69125d5dfcb7b8c2659029395bdf", wantErr: ErrUnrecognizedCredential},
		{name: "mnemonic", credential: "correct horse battery staple", wantErr: ErrUnrecognizedCredential},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveAddress(tc.credential)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBalanceOfData(t *testing.T) {
	data := balanceOfData("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	assert.Equal(t, "0x70a082310000000000000000000000007e5f4552091a69125d5dfcb7b8c2659029395bdf", data)
	assert.Len(t, data, 2+8+64)
}
