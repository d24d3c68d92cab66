package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/easyshift/presence/internal/adapters/store"
	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func event(session string) model.AttendanceEvent {
	now := time.Now().UTC().Truncate(time.Second)
	return model.AttendanceEvent{
		SessionID:   session,
		UserID:      "worker-7",
		Payload:     "BADGE-1234",
		Method:      model.MethodSoftwareDecode,
		CapturedAt:  now.Add(-time.Second),
		SubmittedAt: now,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an in-memory attendance store", t, func() {
		m := store.NewMemoryStore()

		convey.Convey("When an event is written", func() {
			err := m.Write(ctx, event("sess-1"))

			convey.Convey("Then it is persisted and counted", func() {
				convey.So(err, convey.ShouldBeNil)
				n, err := m.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
				convey.So(m.Events()[0].Payload, convey.ShouldEqual, "BADGE-1234")
			})
		})

		convey.Convey("When the same session id is written twice", func() {
			first := event("sess-dup")
			second := first
			second.Payload = "BADGE-9999"

			convey.So(m.Write(ctx, first), convey.ShouldBeNil)
			convey.So(m.Write(ctx, second), convey.ShouldBeNil)

			convey.Convey("Then the duplicate is acknowledged without replacing the record", func() {
				n, err := m.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
				convey.So(m.Events()[0].Payload, convey.ShouldEqual, "BADGE-1234")
				convey.So(m.Writes(), convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given a store scripted to fail", t, func() {
		m := store.NewMemoryStore(store.WithFailures(store.ErrUnavailable))

		convey.Convey("When events are written past the scripted failure", func() {
			first := m.Write(ctx, event("sess-2"))
			second := m.Write(ctx, event("sess-2"))

			convey.Convey("Then the first write fails and the retry lands", func() {
				convey.So(errors.Is(first, store.ErrUnavailable), convey.ShouldBeTrue)
				convey.So(second, convey.ShouldBeNil)
				n, err := m.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
				convey.So(m.Writes(), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a SQLite attendance store", t, func() {
		dsn := filepath.Join(t.TempDir(), "presence.db")
		s, err := store.NewSQLiteStore(ctx, dsn)
		convey.So(err, convey.ShouldBeNil)
		defer s.Close()

		convey.Convey("When an event is written", func() {
			convey.So(s.Write(ctx, event("sql-1")), convey.ShouldBeNil)

			convey.Convey("Then it round-trips through Events", func() {
				n, err := s.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)

				events, err := s.Events(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 1)
				convey.So(events[0].SessionID, convey.ShouldEqual, "sql-1")
				convey.So(events[0].UserID, convey.ShouldEqual, "worker-7")
				convey.So(events[0].Method, convey.ShouldEqual, model.MethodSoftwareDecode)
			})
		})

		convey.Convey("When the same session id is written twice", func() {
			first := event("sql-dup")
			second := first
			second.Payload = "BADGE-9999"

			convey.So(s.Write(ctx, first), convey.ShouldBeNil)
			convey.So(s.Write(ctx, second), convey.ShouldBeNil)

			convey.Convey("Then a single row remains with the original payload", func() {
				n, err := s.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)

				events, err := s.Events(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(events[0].Payload, convey.ShouldEqual, "BADGE-1234")
			})
		})

		convey.Convey("When several events are written", func() {
			for i, session := range []string{"sql-a", "sql-b", "sql-c"} {
				ev := event(session)
				ev.SubmittedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
				convey.So(s.Write(ctx, ev), convey.ShouldBeNil)
			}

			convey.Convey("Then Events returns them newest first", func() {
				events, err := s.Events(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 3)
				convey.So(events[0].SessionID, convey.ShouldEqual, "sql-c")
				convey.So(events[2].SessionID, convey.ShouldEqual, "sql-a")
			})
		})

		convey.Convey("When the store is closed twice", func() {
			convey.So(s.Close(), convey.ShouldBeNil)

			convey.Convey("Then the second close is a no-op", func() {
				convey.So(s.Close(), convey.ShouldBeNil)
			})
		})
	})
}
