package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sealdoc/docledger/internal/validate"
)

// DefaultChallengeTTL bounds the replay window for an issued login nonce.
const DefaultChallengeTTL = 5 * time.Minute

// challengeNonceBytes is the random nonce length before hex encoding.
const challengeNonceBytes = 16

// signedMessagePrefix is the standard prefix wallets prepend before hashing
// a message for signing.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// Authenticator issues single-use login challenges and validates the
// signatures clients produce over them. Signature recovery itself is pure;
// replay protection comes from the single-use challenge store.
type Authenticator struct {
	challenges ChallengeStore
	ttl        time.Duration
	timeNow    func() time.Time // For testability
}

// NewAuthenticator creates an authenticator over the given challenge store.
// A non-positive ttl falls back to DefaultChallengeTTL.
func NewAuthenticator(challenges ChallengeStore, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Authenticator{
		challenges: challenges,
		ttl:        ttl,
		timeNow:    time.Now,
	}
}

// IssueChallenge generates and stores a fresh single-use challenge for the
// address. Fails only on a malformed address.
func (a *Authenticator) IssueChallenge(ctx context.Context, address string) (*Challenge, error) {
	checksummed, err := validate.Address(address)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, challengeNonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	now := a.timeNow().UTC()
	ch := &Challenge{
		Address:   strings.ToLower(address),
		Nonce:     nonce,
		Text:      challengeText(checksummed, nonce, now),
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.challenges.Put(ctx, ch); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	return ch, nil
}

// Recover returns the address that signed message. It is a pure cryptographic
// function: no challenge is consumed and no comparison against a claimed
// address happens here. Returns ErrInvalidSignature if recovery fails.
func Recover(message string, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", ErrInvalidSignature
	}

	// Wallets emit the recovery id as 27/28; secp256k1 recovery wants 0/1.
	sigCopy := make([]byte, crypto.SignatureLength)
	copy(sigCopy, sig)
	if sigCopy[crypto.RecoveryIDOffset] >= 27 {
		sigCopy[crypto.RecoveryIDOffset] -= 27
	}

	digest := signedMessageDigest(message)
	pub, err := crypto.SigToPub(digest, sigCopy)
	if err != nil {
		return "", ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// Authenticate performs the full challenge-response check for a privileged
// call: the signature must recover to the claimed address and the signed
// message must be the live challenge issued for that address. The challenge
// is consumed on first successful use, so a replayed signature fails with
// ErrChallengeNotFound.
func (a *Authenticator) Authenticate(ctx context.Context, message, signature, claimedAddress string) error {
	if _, err := validate.Address(claimedAddress); err != nil {
		return err
	}

	recovered, err := Recover(message, signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, claimedAddress) {
		return ErrAddressMismatch
	}

	ch, err := a.challenges.Take(ctx, claimedAddress)
	if err != nil {
		return err
	}
	if ch.Text != message {
		return ErrChallengeMismatch
	}
	return nil
}

// challengeText builds the human-readable message the client is asked to
// sign. The wording is part of the wire contract with wallet UIs.
func challengeText(address, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"Login to the application\n\nAddress: %s\nNonce: %s\nTimestamp: %d",
		address, nonce, issuedAt.UnixMilli(),
	)
}

// signedMessageDigest hashes a message the way signing wallets do, with the
// standard prefix and message length ahead of the payload.
func signedMessageDigest(message string) []byte {
	prefixed := fmt.Sprintf("%s%d%s", signedMessagePrefix, len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// AddressFromPublicKey derives the account address for a secp256k1 public
// key given in uncompressed form. Exposed for registration tooling.
func AddressFromPublicKey(pub []byte) (string, error) {
	key, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		return "", fmt.Errorf("unmarshal public key: %w", err)
	}
	return crypto.PubkeyToAddress(*key).Hex(), nil
}
