package ledger_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	internal "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/ledger"
	ledgerPostgres "github.com/avelines/creator-ledger/internal/ledger/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type SQLiteLedgerEntry struct {
	ID          string    `gorm:"primaryKey"`
	SubjectID   string    `gorm:"column:subject_id;not null"`
	Kind        string    `gorm:"column:kind;not null"`
	Side        string    `gorm:"column:side;not null"`
	Amount      int64     `gorm:"column:amount;not null"`
	Currency    string    `gorm:"column:currency;not null"`
	ReferenceID string    `gorm:"column:reference_id;not null"`
	ReversalOf  *string   `gorm:"column:reversal_of"`
	Split       string    `gorm:"column:split"`
	Metadata    []byte    `gorm:"column:metadata"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (SQLiteLedgerEntry) TableName() string {
	return "ledger_entries"
}

var _ = Describe("Engine", func() {
	var (
		db     *gorm.DB
		engine *ledger.Engine
		ctx    context.Context
	)

	cfg := internal.LedgerConfig{
		Currency:       "USD",
		PlatformFeePct: 0.10,
		ReservePct:     0.10,
		ClearanceHold:  72 * time.Hour,
		ReserveHold:    720 * time.Hour,
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteLedgerEntry{})
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = ledger.NewEngine(ledgerPostgres.NewLedgerRepository(db), cfg, logger)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	conservationFor := func(referenceID string) {
		entries, err := engine.EntriesForReference(ctx, referenceID)
		Expect(err).NotTo(HaveOccurred())

		var credits, debits int64
		for _, e := range entries {
			if e.Side == ledger.SideCredit {
				credits += e.Amount
			} else {
				debits += e.Amount
			}
		}
		Expect(credits).To(Equal(debits), "reference %s must balance", referenceID)
	}

	Describe("PostEntry", func() {
		It("should reject non-positive amounts", func() {
			_, err := engine.PostEntry(ctx, ledger.EntryParams{
				SubjectID:   "creator-1",
				Kind:        ledger.KindTip,
				Side:        ledger.SideCredit,
				Amount:      0,
				ReferenceID: "ref-1",
			})
			Expect(err).To(MatchError(internal.ErrInvalidAmount))
		})

		It("should reject unknown kinds", func() {
			_, err := engine.PostEntry(ctx, ledger.EntryParams{
				SubjectID:   "creator-1",
				Kind:        ledger.Kind("GIFT"),
				Side:        ledger.SideCredit,
				Amount:      100,
				ReferenceID: "ref-1",
			})
			Expect(err).To(HaveOccurred())
		})

		It("should default the currency from configuration", func() {
			entry, err := engine.PostEntry(ctx, ledger.EntryParams{
				SubjectID:   "creator-1",
				Kind:        ledger.KindTip,
				Side:        ledger.SideCredit,
				Amount:      100,
				ReferenceID: "ref-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Currency).To(Equal("USD"))
		})
	})

	Describe("PostTransactionSplit", func() {
		It("should post the balanced four-entry group", func() {
			entries, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10000,
				Kind:        ledger.KindSubscription,
				ReferenceID: "txn-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(4))

			conservationFor("txn-1")

			payerBalance, err := engine.GetBalance(ctx, "payer-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(payerBalance).To(Equal(int64(-10000)))

			creatorBalance, err := engine.GetBalance(ctx, "creator-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(creatorBalance).To(Equal(int64(9000)))

			platformBalance, err := engine.GetBalance(ctx, ledger.SubjectPlatform)
			Expect(err).NotTo(HaveOccurred())
			Expect(platformBalance).To(Equal(int64(1000)))
		})

		It("should omit the reserve entry when the reserve rounds to zero", func() {
			entries, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10,
				Kind:        ledger.KindTip,
				ReferenceID: "txn-tiny",
			})
			Expect(err).NotTo(HaveOccurred())
			// fee = 1, creatorTotal = 9, reserve = 0
			Expect(entries).To(HaveLen(3))
			conservationFor("txn-tiny")
		})

		It("should reject non-earning kinds", func() {
			_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       1000,
				Kind:        ledger.KindWithdrawal,
				ReferenceID: "txn-bad",
			})
			Expect(err).To(HaveOccurred())
		})

		It("should keep getBalance equal to an independent sum over entries", func() {
			for i, gross := range []int64{10000, 333, 7777} {
				_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
					PayerID:     "payer-1",
					CreatorID:   "creator-1",
					Gross:       gross,
					Kind:        ledger.KindPPV,
					ReferenceID: string(rune('a' + i)),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			entries, err := engine.EntriesForSubject(ctx, "creator-1", 100, 0)
			Expect(err).NotTo(HaveOccurred())

			var independent int64
			for _, e := range entries {
				if e.Side == ledger.SideCredit {
					independent += e.Amount
				} else {
					independent -= e.Amount
				}
			}

			balance, err := engine.GetBalance(ctx, "creator-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance).To(Equal(independent))
		})
	})

	Describe("PostReversal", func() {
		BeforeEach(func() {
			_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10000,
				Kind:        ledger.KindSubscription,
				ReferenceID: "txn-1",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should restore all balances on a full refund", func() {
			entries, err := engine.PostReversal(ctx, "txn-1", 10000, "chargeback")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).NotTo(BeEmpty())
			conservationFor(entries[0].ReferenceID)

			for _, subject := range []string{"payer-1", "creator-1", ledger.SubjectPlatform} {
				balance, err := engine.GetBalance(ctx, subject)
				Expect(err).NotTo(HaveOccurred())
				Expect(balance).To(BeZero(), "subject %s must net to zero", subject)
			}
		})

		It("should scale fee and reserve proportionally on a partial refund", func() {
			_, err := engine.PostReversal(ctx, "txn-1", 5000, "partial refund")
			Expect(err).NotTo(HaveOccurred())

			payerBalance, _ := engine.GetBalance(ctx, "payer-1")
			Expect(payerBalance).To(Equal(int64(-5000)))

			// fee share 500, reserve share 450, main share 4050
			creatorBalance, _ := engine.GetBalance(ctx, "creator-1")
			Expect(creatorBalance).To(Equal(int64(4500)))

			platformBalance, _ := engine.GetBalance(ctx, ledger.SubjectPlatform)
			Expect(platformBalance).To(Equal(int64(500)))
		})

		It("should cap a refund at the remaining unrefunded balance", func() {
			_, err := engine.PostReversal(ctx, "txn-1", 7000, "first refund")
			Expect(err).NotTo(HaveOccurred())

			entries, err := engine.PostReversal(ctx, "txn-1", 7000, "second refund")
			Expect(err).NotTo(HaveOccurred())
			// only 3000 was left to refund
			Expect(entries[0].Amount).To(Equal(int64(3000)))

			payerBalance, _ := engine.GetBalance(ctx, "payer-1")
			Expect(payerBalance).To(BeZero())
		})

		It("should fail once the reference is fully refunded", func() {
			_, err := engine.PostReversal(ctx, "txn-1", 10000, "full refund")
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.PostReversal(ctx, "txn-1", 1, "again")
			Expect(err).To(MatchError(internal.ErrNothingToRefund))
		})

		It("should fail for an unknown reference", func() {
			_, err := engine.PostReversal(ctx, "txn-unknown", 100, "refund")
			Expect(err).To(MatchError(internal.ErrTransactionNotFound))
		})
	})

	Describe("PostWithdrawal", func() {
		BeforeEach(func() {
			_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10000,
				Kind:        ledger.KindSubscription,
				ReferenceID: "txn-1",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should debit the creator and credit treasury and platform", func() {
			entries, err := engine.PostWithdrawal(ctx, ledger.WithdrawalParams{
				CreatorID: "creator-1",
				Amount:    3000,
				Fee:       90,
				PayoutID:  "payout-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(3))
			conservationFor("payout-1")

			creatorBalance, _ := engine.GetBalance(ctx, "creator-1")
			Expect(creatorBalance).To(Equal(int64(6000)))

			treasuryBalance, _ := engine.GetBalance(ctx, ledger.SubjectTreasury)
			Expect(treasuryBalance).To(Equal(int64(2910)))

			platformBalance, _ := engine.GetBalance(ctx, ledger.SubjectPlatform)
			Expect(platformBalance).To(Equal(int64(1090)))
		})

		It("should omit the fee entry for free payouts", func() {
			entries, err := engine.PostWithdrawal(ctx, ledger.WithdrawalParams{
				CreatorID: "creator-1",
				Amount:    5000,
				Fee:       0,
				PayoutID:  "payout-2",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			conservationFor("payout-2")
		})

		It("should reject a fee at or above the amount", func() {
			_, err := engine.PostWithdrawal(ctx, ledger.WithdrawalParams{
				CreatorID: "creator-1",
				Amount:    100,
				Fee:       100,
				PayoutID:  "payout-3",
			})
			Expect(err).To(MatchError(internal.ErrInvalidAmount))
		})
	})

	Describe("PostDisputeHold", func() {
		BeforeEach(func() {
			_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10000,
				Kind:        ledger.KindPPV,
				ReferenceID: "txn-1",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should hold creator credits without changing the net balance", func() {
			before, _ := engine.GetBalance(ctx, "creator-1")

			entries, err := engine.PostDisputeHold(ctx, "txn-1", "fraud review")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			conservationFor(entries[0].ReferenceID)

			after, _ := engine.GetBalance(ctx, "creator-1")
			Expect(after).To(Equal(before))

			// The held amount moved into the reserve bucket.
			balance, err := engine.BalanceBreakdown(ctx, "creator-1", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.InReserve).To(Equal(int64(9900)))
		})
	})

	Describe("BalanceBreakdown", func() {
		BeforeEach(func() {
			_, err := engine.PostTransactionSplit(ctx, ledger.SplitParams{
				PayerID:     "payer-1",
				CreatorID:   "creator-1",
				Gross:       10000,
				Kind:        ledger.KindSubscription,
				ReferenceID: "txn-1",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should hold fresh earnings in reserve and pending clearance", func() {
			balance, err := engine.BalanceBreakdown(ctx, "creator-1", time.Now())
			Expect(err).NotTo(HaveOccurred())

			Expect(balance.InReserve).To(Equal(int64(900)))
			Expect(balance.PendingClear).To(Equal(int64(8100)))
			Expect(balance.Available).To(BeZero())
		})

		It("should release the main split after the clearance hold", func() {
			at := time.Now().Add(cfg.ClearanceHold + time.Minute)
			balance, err := engine.BalanceBreakdown(ctx, "creator-1", at)
			Expect(err).NotTo(HaveOccurred())

			Expect(balance.PendingClear).To(BeZero())
			Expect(balance.InReserve).To(Equal(int64(900)))
			Expect(balance.Available).To(Equal(int64(8100)))
		})

		It("should release everything after the reserve hold", func() {
			at := time.Now().Add(cfg.ReserveHold + time.Minute)
			balance, err := engine.BalanceBreakdown(ctx, "creator-1", at)
			Expect(err).NotTo(HaveOccurred())

			Expect(balance.InReserve).To(BeZero())
			Expect(balance.PendingClear).To(BeZero())
			Expect(balance.Available).To(Equal(int64(9000)))
		})
	})
})
