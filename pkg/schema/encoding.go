/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"crypto/sha256"
	"math"
	"math/big"
	"strconv"
)

// EncodeValue encodes a raw attribute value the way Indy does: integers in the int32 range are kept
// as they are, anything else becomes the decimal form of its SHA-256 digest.
func EncodeValue(raw string) string {
	i, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && i <= math.MaxInt32 && i >= math.MinInt32 {
		return strconv.FormatInt(i, 10)
	}

	sh := sha256.Sum256([]byte(raw))
	return new(big.Int).SetBytes(sh[:]).String()
}

// EncodedInt returns the integer an encoded value stands for, when it is in the int32 range.
func EncodedInt(encoded string) (int64, bool) {
	i, err := strconv.ParseInt(encoded, 10, 64)
	if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
		return 0, false
	}

	return i, true
}
