/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("not found on ledger")
	ErrUnresolvableDID = errors.New("unresolvable DID")
)

type ServiceEndpoint struct {
	DID      string `json:"did"`
	Verkey   string `json:"verkey"`
	Endpoint string `json:"endpoint"`
}

type Schema struct {
	ID        string   `json:"id"`
	IssuerDID string   `json:"issuer_did"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attr_names"`
}

// HasAttributes reports whether every name is declared by the schema.
func (r *Schema) HasAttributes(names ...string) error {
	declared := make(map[string]bool, len(r.AttrNames))
	for _, n := range r.AttrNames {
		declared[n] = true
	}

	var missing []string
	for _, n := range names {
		if !declared[n] {
			missing = append(missing, n)
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("schema %s does not declare %s", r.ID, strings.Join(missing, ", "))
	}

	return nil
}

type CredentialDefinition struct {
	ID                   string `json:"id"`
	SchemaID             string `json:"schema_id"`
	IssuerDID            string `json:"issuer_did"`
	Tag                  string `json:"tag"`
	PublicKey            string `json:"public_key"`
	RevocationRegistryID string `json:"revocation_registry_id,omitempty"`
}

// SupportsRevocation reports whether credentials issued under the definition are revocable.
func (r *CredentialDefinition) SupportsRevocation() bool {
	return r.RevocationRegistryID != ""
}

type RevocationRegistry struct {
	ID         string `json:"id"`
	CredDefID  string `json:"cred_def_id"`
	IssuerDID  string `json:"issuer_did"`
	Tag        string `json:"tag"`
	MaxCredNum int64  `json:"max_cred_num"`
}

type RevocationStatus struct {
	Revoked   bool  `json:"revoked"`
	Timestamp int64 `json:"timestamp"`
}

//go:generate mockery -name=Reader
type Reader interface {
	ResolveDID(ctx context.Context, did string) (*ServiceEndpoint, error)
	ReadSchema(ctx context.Context, id string) (*Schema, error)
	ReadCredDef(ctx context.Context, id string) (*CredentialDefinition, error)
	// ReadRevocationDelta reports whether index was revoked in registryID at any point up to the end
	// of the [from, to] interval. A zero to means now.
	ReadRevocationDelta(ctx context.Context, registryID string, index, from, to int64) (*RevocationStatus, error)
}

//go:generate mockery -name=Writer
type Writer interface {
	WriteDID(ctx context.Context, ep *ServiceEndpoint) error
	WriteSchema(ctx context.Context, s *Schema) (string, error)
	WriteCredDef(ctx context.Context, cd *CredentialDefinition) (string, error)
	WriteRevocationRegistry(ctx context.Context, reg *RevocationRegistry) (string, error)
	WriteRevocation(ctx context.Context, registryID string, indexes ...int64) error
}

//go:generate mockery -name=Client
type Client interface {
	Reader
	Writer
}

// SchemaID builds an Indy style schema id.
func SchemaID(issuerDID, name, version string) string {
	return fmt.Sprintf("%s:2:%s:%s", issuerDID, name, version)
}

// CredDefID builds an Indy style credential definition id.
func CredDefID(issuerDID, schemaID, tag string) string {
	return fmt.Sprintf("%s:3:CL:%s:%s", issuerDID, schemaID, tag)
}

// RevocationRegistryID builds an Indy style revocation registry id.
func RevocationRegistryID(issuerDID, credDefID, tag string) string {
	return fmt.Sprintf("%s:4:%s:CL_ACCUM:%s", issuerDID, credDefID, tag)
}
