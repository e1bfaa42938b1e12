// Package profile builds the scripts and transactions of the Profile contract and decodes its
// values.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
)

// ContractName is the name of the Profile contract.
const ContractName = "Profile"

// TestnetAddress is the account the Profile contract is deployed to on testnet.
var TestnetAddress = ledger.MustParseAddress("0xba1132bc08f82fe2")

var (
	//go:embed cadence/read_profile.cdc
	readProfileSource []byte

	//go:embed cadence/init_account.cdc
	initAccountSource []byte

	//go:embed cadence/set_name.cdc
	setNameSource []byte
)

// Contract is the Profile contract deployed at Address. Its Cadence has the 0xProfile alias
// resolved.
type Contract struct {
	Address ledger.Address

	readCode    []byte
	initCode    []byte
	setNameCode []byte
}

// New returns the contract deployed at addr.
func New(addr ledger.Address) (*Contract, error) {
	if addr.IsZero() {
		return nil, errors.New("profile contract address is required")
	}

	aliases := map[string]ledger.Address{ledger.AliasName(ContractName): addr}
	c := &Contract{
		Address:     addr,
		readCode:    ledger.ResolveImports(readProfileSource, aliases),
		initCode:    ledger.ResolveImports(initAccountSource, aliases),
		setNameCode: ledger.ResolveImports(setNameSource, aliases),
	}
	for _, code := range [][]byte{c.readCode, c.initCode, c.setNameCode} {
		if left := ledger.UnresolvedImports(code); len(left) > 0 {
			return nil, fmt.Errorf("unresolved contract aliases %s", strings.Join(left, ", "))
		}
	}

	return c, nil
}

// ReadCode returns the script reading a profile.
func (c *Contract) ReadCode() []byte { return c.readCode }

// InitCode returns the transaction storing a profile resource in the signer's account.
func (c *Contract) InitCode() []byte { return c.initCode }

// SetNameCode returns the transaction renaming the signer's profile.
func (c *Contract) SetNameCode() []byte { return c.setNameCode }

// ReadQuery returns the query reading the profile of addr.
func (c *Contract) ReadQuery(addr ledger.Address) ledger.Query {
	return ledger.Query{Code: c.readCode, Args: []cadence.Value{addr.Cadence()}}
}

// InitMutation returns the transaction initializing the profile of auth, which pays for,
// proposes and authorizes it.
func (c *Contract) InitMutation(auth ledger.Authorizer, limit uint64) ledger.Mutation {
	return ledger.SingleAuthorizer(c.initCode, nil, auth, limit)
}

// SetNameMutation returns the transaction setting the profile name of auth to name.
func (c *Contract) SetNameMutation(auth ledger.Authorizer, name string, limit uint64) ledger.Mutation {
	return ledger.SingleAuthorizer(c.setNameCode, []cadence.Value{cadence.String(name)}, auth, limit)
}

// ReadOnly is the public view of a profile.
type ReadOnly struct {
	Address ledger.Address
	Name    string
	Avatar  string
	Color   string
	Info    string
}

const readOnlySuffix = "." + ContractName + ".ReadOnly"

// DecodeReadOnly decodes the result of the read script. It returns nil when the account has no
// profile.
func DecodeReadOnly(v cadence.Value) (*ReadOnly, error) {
	v = cadence.Unwrap(v)
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(cadence.Void); ok {
		return nil, nil
	}

	c, ok := v.(cadence.Composite)
	if !ok || c.Kind != cadence.KindStruct || !strings.HasSuffix(c.ID, readOnlySuffix) {
		return nil, fmt.Errorf("expected %s struct, got %s", ContractName+".ReadOnly", v.Type())
	}

	addr, ok := c.AddressField("address")
	if !ok {
		return nil, errors.New("profile has no address")
	}
	p := &ReadOnly{Address: ledger.Address(addr)}
	p.Name, _ = c.StringField("name")
	p.Avatar, _ = c.StringField("avatar")
	p.Color, _ = c.StringField("color")
	p.Info, _ = c.StringField("info")

	return p, nil
}

// EncodeReadOnly converts p to the value returned by the read script of the contract at
// contract.
func EncodeReadOnly(contract ledger.Address, p ReadOnly) cadence.Composite {
	return cadence.Composite{
		Kind: cadence.KindStruct,
		ID:   "A." + contract.Hex() + readOnlySuffix,
		Fields: []cadence.Field{
			{Name: "address", Value: p.Address.Cadence()},
			{Name: "name", Value: cadence.String(p.Name)},
			{Name: "avatar", Value: cadence.String(p.Avatar)},
			{Name: "color", Value: cadence.String(p.Color)},
			{Name: "info", Value: cadence.String(p.Info)},
		},
	}
}
