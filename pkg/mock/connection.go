/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mock

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoir/credex/pkg/datastore"
	"github.com/scoir/credex/pkg/did"
)

// Connect stores a completed connection between two agents on both sides, returning the inviter's
// and the invitee's record.
func Connect(inviter, invitee *Context) (*datastore.Connection, *datastore.Connection) {
	thid := uuid.New().String()
	now := time.Now().UTC()

	a := pairwise(inviter, datastore.RoleInviter, thid, now)
	b := pairwise(invitee, datastore.RoleInvitee, thid, now)

	a.TheirDID, a.TheirVerkey, a.TheirEndpoint, a.TheirLabel = b.MyDID, b.MyVerkey, invitee.URL, invitee.Name
	b.TheirDID, b.TheirVerkey, b.TheirEndpoint, b.TheirLabel = a.MyDID, a.MyVerkey, inviter.URL, inviter.Name

	_ = inviter.DS.InsertConnection(a)
	_ = invitee.DS.InsertConnection(b)

	return a, b
}

func pairwise(ctx *Context, role, thid string, now time.Time) *datastore.Connection {
	d, kp, _ := did.CreateMyDid(&did.MyDIDInfo{Cid: true, MethodName: "sov"})
	_ = ctx.DS.InsertKey(kp.Record())

	return &datastore.Connection{
		ConnectionID: uuid.New().String(),
		Role:         role,
		MyDID:        d.String(),
		MyVerkey:     kp.Verkey(),
		ThreadID:     thid,
		Status: datastore.Status{
			State:     datastore.ConnectionComplete,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
