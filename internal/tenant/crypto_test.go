package tenant_test

import (
	"crypto/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	tenantPkg "github.com/frahmantamala/hosted-checkout/internal/tenant"
)

var _ = Describe("SecretCipher", func() {
	var cipher *tenantPkg.SecretCipher

	BeforeEach(func() {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		Expect(err).ToNot(HaveOccurred())
		cipher, err = tenantPkg.NewSecretCipher(key)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should round-trip plaintext", func() {
		ciphertext, err := cipher.Encrypt("sk_live_supersecret")
		Expect(err).ToNot(HaveOccurred())
		Expect(ciphertext).ToNot(ContainSubstring("supersecret"))

		plaintext, err := cipher.Decrypt(ciphertext)
		Expect(err).ToNot(HaveOccurred())
		Expect(plaintext).To(Equal("sk_live_supersecret"))
	})

	It("should produce distinct ciphertexts for the same plaintext", func() {
		a, err := cipher.Encrypt("same")
		Expect(err).ToNot(HaveOccurred())
		b, err := cipher.Encrypt("same")
		Expect(err).ToNot(HaveOccurred())
		Expect(a).ToNot(Equal(b))
	})

	It("should reject tampered ciphertext", func() {
		ciphertext, err := cipher.Encrypt("sk_live_supersecret")
		Expect(err).ToNot(HaveOccurred())

		tampered := []byte(ciphertext)
		if tampered[len(tampered)-1] == 'a' {
			tampered[len(tampered)-1] = 'b'
		} else {
			tampered[len(tampered)-1] = 'a'
		}
		_, err = cipher.Decrypt(string(tampered))
		Expect(err).To(HaveOccurred())
	})

	It("should reject a short key", func() {
		_, err := tenantPkg.NewSecretCipher([]byte("too-short"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("API keys", func() {
	It("should generate keys in the documented shape", func() {
		rawKey, prefix, hash, err := tenantPkg.GenerateAPIKey(4)
		Expect(err).ToNot(HaveOccurred())
		Expect(rawKey).To(HavePrefix("pk_live_"))
		Expect(rawKey).To(HaveLen(len("pk_live_") + 64))
		Expect(prefix).To(Equal(rawKey[:16]))
		Expect(hash).ToNot(BeEmpty())
		Expect(tenantPkg.CompareAPIKey(hash, rawKey)).To(BeTrue())
	})

	It("should not match a different key against the hash", func() {
		_, _, hash, err := tenantPkg.GenerateAPIKey(4)
		Expect(err).ToNot(HaveOccurred())
		other, _, _, err := tenantPkg.GenerateAPIKey(4)
		Expect(err).ToNot(HaveOccurred())
		Expect(tenantPkg.CompareAPIKey(hash, other)).To(BeFalse())
	})

	It("should extract the lookup prefix only from well-formed keys", func() {
		prefix, ok := tenantPkg.KeyPrefix("pk_live_abcdef0123456789")
		Expect(ok).To(BeTrue())
		Expect(prefix).To(Equal("pk_live_abcdef01"))

		_, ok = tenantPkg.KeyPrefix("sk_test_whatever")
		Expect(ok).To(BeFalse())

		_, ok = tenantPkg.KeyPrefix("")
		Expect(ok).To(BeFalse())
	})
})
