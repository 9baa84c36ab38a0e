package intake_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	internal "github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/billing"
	billingPostgres "github.com/avelines/creator-ledger/internal/billing/postgres"
	"github.com/avelines/creator-ledger/internal/intake"
	intakePostgres "github.com/avelines/creator-ledger/internal/intake/postgres"
	"github.com/avelines/creator-ledger/internal/ledger"
	ledgerPostgres "github.com/avelines/creator-ledger/internal/ledger/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestIntake(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Intake Suite")
}

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

type SQLiteTransaction struct {
	ID          string     `gorm:"primaryKey"`
	Kind        string     `gorm:"column:kind;not null"`
	PayerID     string     `gorm:"column:payer_id;not null"`
	CreatorID   string     `gorm:"column:creator_id;not null"`
	Amount      int64      `gorm:"column:amount;not null"`
	Currency    string     `gorm:"column:currency;not null"`
	Status      string     `gorm:"column:status;not null"`
	Metadata    []byte     `gorm:"column:metadata"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (SQLiteTransaction) TableName() string {
	return "transactions"
}

type SQLiteProcessedEvent struct {
	ID              int64     `gorm:"primaryKey"`
	ExternalEventID string    `gorm:"column:external_event_id;not null;uniqueIndex"`
	Type            string    `gorm:"column:type;not null"`
	Outcome         []byte    `gorm:"column:outcome"`
	ProcessedAt     time.Time `gorm:"column:processed_at"`
}

func (SQLiteProcessedEvent) TableName() string {
	return "processed_events"
}

var _ = Describe("Service", func() {
	var (
		db           *gorm.DB
		service      *intake.Service
		engine       *ledger.Engine
		transactions billing.Repository
		ctx          context.Context
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

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteLedgerEntry{}, &SQLiteTransaction{}, &SQLiteProcessedEvent{})
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = ledger.NewEngine(ledgerPostgres.NewLedgerRepository(db), cfg, logger)
		transactions = billingPostgres.NewTransactionRepository(db)
		service = intake.NewService(db, intakePostgres.NewProcessedEventRepository(db), engine, transactions, nil, logger)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	seedPending := func(id string, amount int64) {
		now := time.Now()
		err := transactions.Create(ctx, &billing.Transaction{
			ID:        id,
			Kind:      ledger.KindSubscription,
			PayerID:   "payer-1",
			CreatorID: "creator-1",
			Amount:    amount,
			Currency:  "USD",
			Status:    billing.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	confirmedPayload := func(eventID, referenceID string, amount int64) []byte {
		return []byte(fmt.Sprintf(`{
			"id": %q,
			"type": "payment.confirmed",
			"object": {
				"amount": %d,
				"currency": "USD",
				"metadata": {
					"kind": "SUBSCRIPTION",
					"referenceId": %q,
					"payerId": "payer-1",
					"creatorId": "creator-1"
				}
			}
		}`, eventID, amount, referenceID))
	}

	refundPayload := func(eventID, referenceID string, amount int64) []byte {
		return []byte(fmt.Sprintf(`{
			"id": %q,
			"type": "payment.refunded",
			"object": {
				"amount": %d,
				"metadata": {"referenceId": %q, "reason": "requested by payer"}
			}
		}`, eventID, amount, referenceID))
	}

	disputePayload := func(eventID, referenceID string) []byte {
		return []byte(fmt.Sprintf(`{
			"id": %q,
			"type": "dispute.opened",
			"object": {
				"metadata": {"referenceId": %q, "reason": "cardholder complaint"}
			}
		}`, eventID, referenceID))
	}

	Describe("payment.confirmed", func() {
		BeforeEach(func() {
			seedPending("txn-1", 10000)
		})

		It("should post the split and confirm the transaction", func() {
			outcome, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(intake.OutcomeApplied))
			Expect(outcome.Duplicate).To(BeFalse())
			Expect(outcome.Amount).To(Equal(int64(10000)))

			creatorBalance, err := engine.GetBalance(ctx, "creator-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(creatorBalance).To(Equal(int64(9000)))

			txn, err := transactions.GetByID(ctx, "txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(billing.StatusConfirmed))
			Expect(txn.ConfirmedAt).NotTo(BeNil())
		})

		It("should apply nothing on a duplicate delivery", func() {
			_, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())

			balanceAfterFirst, _ := engine.GetBalance(ctx, "creator-1")

			outcome, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Duplicate).To(BeTrue())
			Expect(outcome.Status).To(Equal(intake.OutcomeApplied))
			Expect(outcome.Amount).To(Equal(int64(10000)))

			balanceAfterSecond, _ := engine.GetBalance(ctx, "creator-1")
			Expect(balanceAfterSecond).To(Equal(balanceAfterFirst))

			var count int64
			Expect(db.Model(&SQLiteProcessedEvent{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			entries, _ := engine.EntriesForReference(ctx, "txn-1")
			Expect(entries).To(HaveLen(4))
		})

		It("should reject confirmation of an already confirmed transaction", func() {
			_, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.HandleExternalEvent(ctx, confirmedPayload("evt-2", "txn-1", 10000))
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTransactionState))

			// The failed event rolled back; a later retry with a fresh
			// outcome must not be treated as a duplicate.
			var count int64
			Expect(db.Model(&SQLiteProcessedEvent{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("payment.refunded", func() {
		BeforeEach(func() {
			seedPending("txn-1", 10000)
			_, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should mark a partial refund as partially refunded", func() {
			outcome, err := service.HandleExternalEvent(ctx, refundPayload("evt-2", "txn-1", 4000))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(intake.OutcomeRefunded))
			Expect(outcome.Amount).To(Equal(int64(4000)))

			txn, err := transactions.GetByID(ctx, "txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(billing.StatusPartiallyRefunded))

			payerBalance, _ := engine.GetBalance(ctx, "payer-1")
			Expect(payerBalance).To(Equal(int64(-6000)))
		})

		It("should mark a full refund as refunded", func() {
			_, err := service.HandleExternalEvent(ctx, refundPayload("evt-2", "txn-1", 4000))
			Expect(err).NotTo(HaveOccurred())

			outcome, err := service.HandleExternalEvent(ctx, refundPayload("evt-3", "txn-1", 6000))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Amount).To(Equal(int64(6000)))

			txn, err := transactions.GetByID(ctx, "txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(billing.StatusRefunded))

			payerBalance, _ := engine.GetBalance(ctx, "payer-1")
			Expect(payerBalance).To(BeZero())
		})

		It("should cap a refund above the remaining balance", func() {
			outcome, err := service.HandleExternalEvent(ctx, refundPayload("evt-2", "txn-1", 15000))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Amount).To(Equal(int64(10000)))

			txn, err := transactions.GetByID(ctx, "txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(billing.StatusRefunded))
		})
	})

	Describe("dispute.opened", func() {
		BeforeEach(func() {
			seedPending("txn-1", 10000)
			_, err := service.HandleExternalEvent(ctx, confirmedPayload("evt-1", "txn-1", 10000))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should hold the creator credits and mark the transaction disputed", func() {
			before, _ := engine.GetBalance(ctx, "creator-1")

			outcome, err := service.HandleExternalEvent(ctx, disputePayload("evt-2", "txn-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(intake.OutcomeHeld))

			after, _ := engine.GetBalance(ctx, "creator-1")
			Expect(after).To(Equal(before))

			balance, err := engine.BalanceBreakdown(ctx, "creator-1", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.InReserve).To(Equal(int64(9900)))

			txn, err := transactions.GetByID(ctx, "txn-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(txn.Status).To(Equal(billing.StatusDisputed))
		})
	})

	Describe("unknown event types", func() {
		It("should acknowledge and record them without applying anything", func() {
			outcome, err := service.HandleExternalEvent(ctx, []byte(`{"id": "evt-x", "type": "invoice.created", "object": {}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Status).To(Equal(intake.OutcomeIgnored))

			replay, err := service.HandleExternalEvent(ctx, []byte(`{"id": "evt-x", "type": "invoice.created", "object": {}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(replay.Status).To(Equal(intake.OutcomeIgnored))
			Expect(replay.Duplicate).To(BeTrue())
		})
	})

	Describe("malformed payloads", func() {
		It("should reject invalid JSON", func() {
			_, err := service.HandleExternalEvent(ctx, []byte(`{not json`))
			Expect(err).To(HaveOccurred())
		})

		It("should reject a missing event id", func() {
			_, err := service.HandleExternalEvent(ctx, []byte(`{"type": "payment.confirmed", "object": {}}`))
			Expect(err).To(HaveOccurred())
		})

		It("should reject a non-earning payment kind", func() {
			payload := []byte(`{
				"id": "evt-bad",
				"type": "payment.confirmed",
				"object": {
					"amount": 100,
					"metadata": {"kind": "WITHDRAWAL", "referenceId": "txn-1", "payerId": "p", "creatorId": "c"}
				}
			}`)
			_, err := service.HandleExternalEvent(ctx, payload)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("variant outcomes", func() {
		It("should encode amounts and references in the parsed event", func() {
			event, err := intake.ParseExternalEvent(confirmedPayload("evt-1", "txn-9", 2500))
			Expect(err).NotTo(HaveOccurred())

			variant, appErr := event.Variant()
			Expect(appErr).To(BeNil())

			confirmed, ok := variant.(*intake.PaymentConfirmedEvent)
			Expect(ok).To(BeTrue())
			Expect(confirmed.ReferenceID).To(Equal("txn-9"))
			Expect(confirmed.Amount).To(Equal(int64(2500)))
			Expect(confirmed.Kind).To(Equal(ledger.KindSubscription))

			raw, err := json.Marshal(intake.Outcome{Status: intake.OutcomeApplied, Duplicate: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).NotTo(ContainSubstring("Duplicate"))
		})
	})
})
