package tap

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// secp256k1N is the order of the secp256k1 curve; secp256k1NHalf is half of
// it, the low-S/high-S boundary used for signature malleability checks.
var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1NHalf = new(big.Int).Rsh(secp256k1N, 1)
)

// ErrHighS is returned when a signature carries a high-S value. Accepting
// both S and N-S for the same digest would let a single signer produce two
// distinct-looking but equally valid signatures over one message, which
// breaks digest uniqueness across a batch (spec.md §4.2, §7 UniquenessError).
var ErrHighS = errors.New("tap: signature has non-canonical (high-S) value")

// sign produces a canonical low-S signature over digest using key.
func sign(key *ecdsa.PrivateKey, d tapcrypto.Hash32) (Signature, error) {
	sig, err := crypto.Sign(d[:], key)
	if err != nil {
		return Signature{}, err
	}
	var raw [65]byte
	copy(raw[:], sig)
	// crypto.Sign already returns low-S (go-ethereum normalizes internally),
	// but recompute explicitly so the invariant holds even if that ever
	// changes upstream.
	s := new(big.Int).SetBytes(raw[32:64])
	if s.Cmp(secp256k1NHalf) > 0 {
		s.Sub(secp256k1N, s)
		s.FillBytes(raw[32:64])
		raw[64] ^= 1
	}
	return SignatureFrom65(raw), nil
}

// SignReceiptV1 signs a V1 receipt under domain with key.
func SignReceiptV1(key *ecdsa.PrivateKey, domain Domain, msg ReceiptV1) (SignedReceiptV1, error) {
	sig, err := sign(key, DigestReceiptV1(domain, msg))
	if err != nil {
		return SignedReceiptV1{}, err
	}
	return SignedReceiptV1{Message: msg, Signature: sig}, nil
}

// SignRavV1 signs a V1 RAV under domain with key.
func SignRavV1(key *ecdsa.PrivateKey, domain Domain, msg RavV1) (SignedRavV1, error) {
	sig, err := sign(key, DigestRavV1(domain, msg))
	if err != nil {
		return SignedRavV1{}, err
	}
	return SignedRavV1{Message: msg, Signature: sig}, nil
}

// SignReceiptV2 signs a V2 receipt under domain with key.
func SignReceiptV2(key *ecdsa.PrivateKey, domain Domain, msg ReceiptV2) (SignedReceiptV2, error) {
	sig, err := sign(key, DigestReceiptV2(domain, msg))
	if err != nil {
		return SignedReceiptV2{}, err
	}
	return SignedReceiptV2{Message: msg, Signature: sig}, nil
}

// SignRavV2 signs a V2 RAV under domain with key.
func SignRavV2(key *ecdsa.PrivateKey, domain Domain, msg RavV2) (SignedRavV2, error) {
	sig, err := sign(key, DigestRavV2(domain, msg))
	if err != nil {
		return SignedRavV2{}, err
	}
	return SignedRavV2{Message: msg, Signature: sig}, nil
}

// recover recovers the signer address from a digest and signature. It
// rejects high-S signatures outright rather than normalizing them, so a
// malleable signature never silently passes verification.
func recover(d tapcrypto.Hash32, sig Signature) (tapcrypto.Address, error) {
	s := new(big.Int).SetBytes(sig.S[:])
	if s.Cmp(secp256k1NHalf) > 0 {
		return tapcrypto.Address{}, ErrHighS
	}
	raw := sig.Bytes65()
	pub, err := crypto.SigToPub(d[:], raw[:])
	if err != nil {
		return tapcrypto.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverReceiptV1 recovers the signer of a signed V1 receipt.
func RecoverReceiptV1(domain Domain, s SignedReceiptV1) (tapcrypto.Address, error) {
	return recover(DigestReceiptV1(domain, s.Message), s.Signature)
}

// RecoverRavV1 recovers the signer of a signed V1 RAV.
func RecoverRavV1(domain Domain, s SignedRavV1) (tapcrypto.Address, error) {
	return recover(DigestRavV1(domain, s.Message), s.Signature)
}

// RecoverReceiptV2 recovers the signer of a signed V2 receipt.
func RecoverReceiptV2(domain Domain, s SignedReceiptV2) (tapcrypto.Address, error) {
	return recover(DigestReceiptV2(domain, s.Message), s.Signature)
}

// RecoverRavV2 recovers the signer of a signed V2 RAV.
func RecoverRavV2(domain Domain, s SignedRavV2) (tapcrypto.Address, error) {
	return recover(DigestRavV2(domain, s.Message), s.Signature)
}
