package notes

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
)

var _ = Describe("Sessions", func() {
	var (
		clock    *mockClock
		sessions *Sessions
	)

	BeforeEach(func() {
		clock = &mockClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
		sessions = NewSessionsWithDeps(time.Hour, &mockIDGenerator{}, clock)
	})

	Describe("Get", func() {
		It("creates a session for an empty id", func() {
			sess := sessions.Get("")
			Expect(sess.ID).To(Equal("session-1"))
			Expect(sess.Ledger().Len()).To(Equal(0))
			Expect(sessions.Len()).To(Equal(1))
		})

		It("returns the same session for a known id", func() {
			first := sessions.Get("")
			first.Ledger().Append(history.Record{Filename: "a.png"})

			again := sessions.Get(first.ID)
			Expect(again).To(BeIdenticalTo(first))
			Expect(again.Ledger().Len()).To(Equal(1))
		})

		It("creates a new session for an unknown id", func() {
			sess := sessions.Get("forged")
			Expect(sess.ID).NotTo(Equal("forged"))
		})

		It("keeps ledgers of different sessions apart", func() {
			a := sessions.Get("")
			b := sessions.Get("")
			a.Ledger().Append(history.Record{Filename: "a.png"})
			Expect(b.Ledger().Len()).To(Equal(0))
		})

		It("replaces a session that has been idle for the TTL", func() {
			first := sessions.Get("")
			clock.Advance(time.Hour)
			again := sessions.Get(first.ID)
			Expect(again.ID).NotTo(Equal(first.ID))
		})

		It("extends a session that is used", func() {
			first := sessions.Get("")
			clock.Advance(50 * time.Minute)
			Expect(sessions.Get(first.ID)).To(BeIdenticalTo(first))
			clock.Advance(50 * time.Minute)
			Expect(sessions.Get(first.ID)).To(BeIdenticalTo(first))
		})
	})

	Describe("Lookup", func() {
		It("returns nil without creating a session for an unknown id", func() {
			Expect(sessions.Lookup("")).To(BeNil())
			Expect(sessions.Lookup("forged")).To(BeNil())
			Expect(sessions.Len()).To(BeZero())
		})

		It("returns and extends a live session", func() {
			first := sessions.Get("")
			clock.Advance(50 * time.Minute)
			Expect(sessions.Lookup(first.ID)).To(BeIdenticalTo(first))
			clock.Advance(50 * time.Minute)
			Expect(sessions.Lookup(first.ID)).To(BeIdenticalTo(first))
		})

		It("returns nil for an expired session", func() {
			first := sessions.Get("")
			clock.Advance(time.Hour)
			Expect(sessions.Lookup(first.ID)).To(BeNil())
		})
	})

	Describe("Sweep", func() {
		It("drops idle sessions only", func() {
			old := sessions.Get("")
			clock.Advance(40 * time.Minute)
			fresh := sessions.Get("")
			clock.Advance(30 * time.Minute)

			Expect(sessions.Sweep()).To(Equal(1))
			Expect(sessions.Len()).To(Equal(1))
			Expect(sessions.Get(fresh.ID)).To(BeIdenticalTo(fresh))
			Expect(sessions.Get(old.ID).ID).NotTo(Equal(old.ID))
		})
	})

	Describe("Run", func() {
		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				sessions.Run(ctx, time.Millisecond)
				close(done)
			}()
			cancel()
			Eventually(done).Should(BeClosed())
		})
	})

	Describe("NewSessions", func() {
		It("issues UUIDs", func() {
			sess := NewSessions(0).Get("")
			Expect(sess.ID).To(MatchRegexp(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`))
		})
	})
})
