/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"time"

	"github.com/scoir/credex/pkg/datastore"
)

// Failed records a dependency failure of the step running against st. The step can be re-attempted.
func Failed(st *datastore.Status, err error, now time.Time) {
	st.Fail(CauseCode(err), err.Error(), true, now)
}

// Undelivered records that the outbound message of a step that moved st out of prev could not be
// sent. The step may be re-attempted from prev, and the inbound message msgID applied again. A step
// that created the record has no prev and cannot be resumed.
func Undelivered(st *datastore.Status, prev, msgID string, err error, now time.Time) {
	st.State = prev
	st.Fail(CauseCode(err), err.Error(), prev != "", now)
	st.Forget(msgID)
}
