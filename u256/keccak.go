package u256

import "golang.org/x/crypto/sha3"

// Keccak256 hashes data with Keccak-f[1600] at rate 1088 bits (the
// 0x01/0x80 padding variant, not the later NIST SHA3-256 0x06 padding)
// and returns the digest as a U256, big-endian (digest byte 0 is the
// most significant byte of the result). This is the primitive behind
// the KECCAK256 opcode and any host-side address/hash derivation that
// needs it outside the interpreter loop.
//
// golang.org/x/crypto/sha3's NewLegacyKeccak256 implements exactly the
// pre-standardization padding Ethereum uses; sha3.Sum256 would produce
// a different digest for the same input.
func Keccak256(data []byte) *Int {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	digest := h.Sum(nil)

	var z Int
	return z.SetBytes(digest)
}
