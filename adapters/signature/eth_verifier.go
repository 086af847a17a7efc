package signature

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

// EthVerifier verifies EIP-191 personal_sign signatures
type EthVerifier struct{}

// NewEthVerifier creates a new personal_sign verifier
func NewEthVerifier() ports.SignatureVerifier {
	return EthVerifier{}
}

// Verify recovers the signer of message and compares it to address
func (EthVerifier) Verify(message, signatureStr, addressStr string) error {
	if !common.IsHexAddress(addressStr) {
		return core.ErrInvalidAddress
	}

	recovered, err := RecoverAddress(message, signatureStr)
	if err != nil {
		return err
	}

	if !strings.EqualFold(recovered.Hex(), addressStr) {
		return core.ErrInvalidSignature
	}

	return nil
}

// RecoverAddress returns the address that produced signatureStr over message
func RecoverAddress(message, signatureStr string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureStr)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	// Wallets emit v as 27/28, recovery expects 0/1
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id: %w", core.ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pub), nil
}
