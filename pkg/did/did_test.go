/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateMyDid(t *testing.T) {
	type args struct {
		info *MyDIDInfo
	}
	tests := []struct {
		name       string
		args       args
		wantDID    string
		wantVerkey string
		wantErr    bool
	}{
		{
			name: "test seed, short",
			args: args{
				info: &MyDIDInfo{
					Seed:       "b2352b32947e188eb72871093ac6217e",
					Cid:        true,
					MethodName: "sov",
				},
			},
			wantDID:    "did:sov:WvRwKqxFLtJ3YbhmHZBpmy",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
		{
			name: "test seed, short, no method",
			args: args{
				info: &MyDIDInfo{
					Seed: "b2352b32947e188eb72871093ac6217e",
					Cid:  true,
				},
			},
			wantDID:    "did:WvRwKqxFLtJ3YbhmHZBpmy",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
		{
			name: "test seed, existing DID",
			args: args{
				info: &MyDIDInfo{
					DID:        "abc123",
					MethodName: "scr",
					Seed:       "b2352b32947e188eb72871093ac6217e",
					Cid:        true,
				},
			},
			wantDID:    "did:scr:abc123",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
		{
			name: "test seed, long",
			args: args{
				info: &MyDIDInfo{
					Seed:       "b2352b32947e188eb72871093ac6217e",
					Cid:        false,
					MethodName: "sov",
				},
			},
			wantDID:    "did:sov:HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
		{
			name: "test no seed",
			args: args{
				info: &MyDIDInfo{
					Seed:       "",
					Cid:        true,
					MethodName: "sov",
				},
			},
			wantErr: false,
		},
		{
			name: "test bad base64 seed",
			args: args{
				info: &MyDIDInfo{
					Seed: "cG9vcA==",
				},
			},
			wantErr: true,
		},
		{
			name: "test base64 seed",
			args: args{
				info: &MyDIDInfo{
					Seed:       "YjIzNTJiMzI5NDdlMTg4ZWI3Mjg3MTA5M2FjNjIxN2U=",
					Cid:        false,
					MethodName: "ioe",
				},
			},
			wantDID:    "did:ioe:HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
		{
			name: "test hex seed",
			args: args{
				info: &MyDIDInfo{
					Seed:       "6232333532623332393437653138386562373238373130393361633632313765",
					Cid:        true,
					MethodName: "hex",
				},
			},
			wantDID:    "did:hex:WvRwKqxFLtJ3YbhmHZBpmy",
			wantVerkey: "HJsMyfABm7gmPse8QzgUePRwTbQRyALgeZudJuYbYmro",
			wantErr:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			did, _, err := CreateMyDid(tt.args.info)
			if tt.wantErr {
				require.Error(t, err)
				return
			} else {
				require.NoError(t, err)
			}

			if tt.wantDID != "" {
				require.Equal(t, tt.wantDID, did.String())
			}

			if tt.wantVerkey != "" {
				require.Equal(t, tt.wantVerkey, did.Verkey)
			}
		})
	}
}

func TestKeyPair(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		r := &KeyPair{vk: "test", sk: "BzfBWFc"}
		require.Equal(t, ed25519.PrivateKey("aries"), r.Priv())
		require.Equal(t, "test", r.Verkey())

		_, err := r.Sign([]byte("msg"))
		require.Error(t, err)
	})

	t.Run("sign and verify", func(t *testing.T) {
		_, kp, err := CreateMyDid(&MyDIDInfo{Seed: "b2352b32947e188eb72871093ac6217e"})
		require.NoError(t, err)

		sig, err := kp.Sign([]byte("thread-1"))
		require.NoError(t, err)
		require.NoError(t, Verify(kp.Verkey(), []byte("thread-1"), sig))
		require.Error(t, Verify(kp.Verkey(), []byte("thread-2"), sig))
		require.Error(t, Verify("not-a-key", []byte("thread-1"), sig))
	})

	t.Run("record round trip", func(t *testing.T) {
		_, kp, err := CreateMyDid(&MyDIDInfo{})
		require.NoError(t, err)

		rec := kp.Record()
		require.Equal(t, kp.Verkey(), rec.ID)

		restored := FromRecord(rec)
		require.Equal(t, kp.Verkey(), restored.Verkey())
		require.Equal(t, kp.Priv(), restored.Priv())
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in, method, id string
	}{
		{"did:sov:WvRwKqxFLtJ3YbhmHZBpmy", "sov", "WvRwKqxFLtJ3YbhmHZBpmy"},
		{"did:WvRwKqxFLtJ3YbhmHZBpmy", "", "WvRwKqxFLtJ3YbhmHZBpmy"},
		{"WvRwKqxFLtJ3YbhmHZBpmy", "", "WvRwKqxFLtJ3YbhmHZBpmy"},
		{"did:peer:1:abc", "peer", "1:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := Parse(tt.in)
			require.Equal(t, tt.method, d.Method)
			require.Equal(t, tt.id, d.DID)
		})
	}
}
