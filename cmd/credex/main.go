/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/scoir/credex/pkg/agent/cmd"
)

func main() {
	cmd.Execute()
}
