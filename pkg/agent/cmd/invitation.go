/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoir/credex/pkg/agent"
	"github.com/scoir/credex/pkg/didexchange"
)

var (
	alias    string
	multiUse bool
	public   bool
)

var invitationCmd = &cobra.Command{
	Use:   "invitation",
	Short: "Creates a connection invitation",
	Long:  `Creates a connection invitation and prints its URL`,
	RunE:  runInvitation,
}

func runInvitation(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := agent.FromConfig(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []didexchange.InvitationOption
	if alias != "" {
		opts = append(opts, didexchange.WithAlias(alias))
	}
	if multiUse {
		opts = append(opts, didexchange.WithMultiUse())
	}
	if public {
		opts = append(opts, didexchange.WithPublicDID(a.PublicDID()))
	}

	conn, err := a.Connections().CreateInvitation(ctx, a.Label(), opts...)
	if err != nil {
		return err
	}

	url, err := a.Connections().InvitationURL(conn)
	if err != nil {
		return err
	}

	fmt.Println(url)
	return nil
}

func init() {
	rootCmd.AddCommand(invitationCmd)
	invitationCmd.Flags().StringVar(&alias, "alias", "", "local alias for the connection")
	invitationCmd.Flags().BoolVar(&multiUse, "multi-use", false, "allow the invitation to be accepted more than once")
	invitationCmd.Flags().BoolVar(&public, "public", false, "invite with the agent's public DID")
}
