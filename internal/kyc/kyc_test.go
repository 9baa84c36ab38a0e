package kyc_test

import (
	"testing"

	"github.com/avelines/creator-ledger/internal/kyc"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKyc(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kyc Suite")
}

var _ = Describe("Level", func() {
	It("should order the tiers", func() {
		Expect(kyc.LevelNone.AtLeast(kyc.LevelNone)).To(BeTrue())
		Expect(kyc.LevelNone.AtLeast(kyc.LevelBasic)).To(BeFalse())
		Expect(kyc.LevelBasic.AtLeast(kyc.LevelBasic)).To(BeTrue())
		Expect(kyc.LevelBasic.AtLeast(kyc.LevelEnhanced)).To(BeFalse())
		Expect(kyc.LevelEnhanced.AtLeast(kyc.LevelBasic)).To(BeTrue())
		Expect(kyc.LevelEnhanced.AtLeast(kyc.LevelEnhanced)).To(BeTrue())
	})

	It("should never let an unknown level unlock anything", func() {
		Expect(kyc.Level("PLATINUM").AtLeast(kyc.LevelNone)).To(BeFalse())
		Expect(kyc.Level("").Valid()).To(BeFalse())
	})
})
