package escrow

import (
	"fmt"

	"github.com/FireFistisDead/SmartPay-sub004/internal/lib"
	"github.com/ethereum/go-ethereum/common"
)

const maxReputation = 100

// AddVerifier registers an off-chain verifier. Registration is idempotent on
// the address, re-adding an existing verifier fails.
func (e *Engine) AddVerifier(addr common.Address, displayName string, reputation uint8) (*Verifier, error) {
	if reputation > maxReputation {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("reputation %d out of range", reputation))
	}
	if _, ok := e.store.GetVerifier(addr); ok {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("verifier %s already registered", addr.Hex()))
	}

	verifier := &Verifier{
		Address:     addr,
		DisplayName: displayName,
		Reputation:  reputation,
		Active:      true,
	}
	e.store.PutVerifier(verifier)
	return verifier.Clone(), nil
}

// UpdateVerifier adjusts activation and reputation. Verifiers are never
// deleted so historical approval records stay attributable.
func (e *Engine) UpdateVerifier(addr common.Address, active bool, reputation uint8) (*Verifier, error) {
	if reputation > maxReputation {
		return nil, lib.WrapError(ErrInvalidSpec, fmt.Errorf("reputation %d out of range", reputation))
	}
	verifier, ok := e.store.GetVerifier(addr)
	if !ok {
		return nil, lib.WrapError(ErrUnknownVerifier, fmt.Errorf("verifier %s", addr.Hex()))
	}

	verifier.Active = active
	verifier.Reputation = reputation
	e.store.PutVerifier(verifier)
	return verifier.Clone(), nil
}

// Verifiers lists the registry
func (e *Engine) Verifiers() []*Verifier {
	return e.store.Verifiers()
}
