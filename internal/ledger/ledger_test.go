package ledger_test

import (
	"testing"

	"github.com/avelines/creator-ledger/internal/ledger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLedger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ledger Suite")
}

var _ = Describe("ComputeSplit", func() {
	It("should split a 10000 gross at 10% fee and 10% reserve", func() {
		split := ledger.ComputeSplit(10000, 0.10, 0.10)

		Expect(split.PlatformFee).To(Equal(int64(1000)))
		Expect(split.CreatorReserve).To(Equal(int64(900)))
		Expect(split.CreatorMain).To(Equal(int64(8100)))
	})

	It("should floor both percentages", func() {
		split := ledger.ComputeSplit(999, 0.10, 0.10)

		Expect(split.PlatformFee).To(Equal(int64(99)))
		// creatorTotal = 900, reserve = floor(900 * 0.10) = 90
		Expect(split.CreatorReserve).To(Equal(int64(90)))
		Expect(split.CreatorMain).To(Equal(int64(810)))
	})

	It("should conserve the gross amount for any split", func() {
		grosses := []int64{1, 2, 3, 7, 99, 100, 101, 9999, 10000, 123457}
		for _, gross := range grosses {
			split := ledger.ComputeSplit(gross, 0.10, 0.10)
			Expect(split.PlatformFee + split.CreatorReserve + split.CreatorMain).To(Equal(gross),
				"gross %d must be fully distributed", gross)
		}
	})

	It("should produce a zero fee when the fee percentage is zero", func() {
		split := ledger.ComputeSplit(5000, 0, 0.10)

		Expect(split.PlatformFee).To(BeZero())
		Expect(split.CreatorReserve).To(Equal(int64(500)))
		Expect(split.CreatorMain).To(Equal(int64(4500)))
	})

	It("should produce a zero reserve for tiny amounts", func() {
		split := ledger.ComputeSplit(5, 0.10, 0.10)

		Expect(split.PlatformFee).To(BeZero())
		Expect(split.CreatorReserve).To(BeZero())
		Expect(split.CreatorMain).To(Equal(int64(5)))
	})
})

var _ = Describe("Kind", func() {
	It("should accept every journal kind", func() {
		for _, k := range []ledger.Kind{
			ledger.KindSubscription,
			ledger.KindPPV,
			ledger.KindTip,
			ledger.KindFee,
			ledger.KindRefund,
			ledger.KindWithdrawal,
		} {
			Expect(k.Valid()).To(BeTrue())
		}
	})

	It("should reject unknown kinds", func() {
		Expect(ledger.Kind("GIFT").Valid()).To(BeFalse())
		Expect(ledger.Kind("").Valid()).To(BeFalse())
	})

	It("should classify only payer-funded kinds as earnings", func() {
		Expect(ledger.KindSubscription.Earning()).To(BeTrue())
		Expect(ledger.KindPPV.Earning()).To(BeTrue())
		Expect(ledger.KindTip.Earning()).To(BeTrue())

		Expect(ledger.KindFee.Earning()).To(BeFalse())
		Expect(ledger.KindRefund.Earning()).To(BeFalse())
		Expect(ledger.KindWithdrawal.Earning()).To(BeFalse())
	})
})

var _ = Describe("Side", func() {
	It("should flip between credit and debit", func() {
		Expect(ledger.SideCredit.Flip()).To(Equal(ledger.SideDebit))
		Expect(ledger.SideDebit.Flip()).To(Equal(ledger.SideCredit))
	})

	It("should reject unknown sides", func() {
		Expect(ledger.Side("BOTH").Valid()).To(BeFalse())
	})
})
