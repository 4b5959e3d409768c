//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rctrack/internal/rc/models"
	"rctrack/internal/rc/store"
	"rctrack/pkg/domain"
	"rctrack/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "rc_entries"))
}

func newTestEntry(regNo string, owner domain.UserID, createdAt time.Time) *models.Entry {
	return &models.Entry{
		ID: domain.NewEntryID(),
		Details: models.Details{
			VehicleName:    "Tata Nexon",
			VehicleRegNo:   regNo,
			OwnerName:      "Owner",
			OwnerPhone:     "9000000001",
			ApplicantName:  "Applicant",
			ApplicantPhone: "9000000002",
			Work:           "transfer",
			DealerName:     "City Motors",
		},
		CreatedBy: owner,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	owner := domain.UserID("64f1a2b3c4d5e6f708192a3b")
	entry := newTestEntry("dl01ca0001", owner, time.Now())
	entry.Status.ReturnedToDealer = true
	s.Require().NoError(s.store.Create(s.ctx, entry))

	found, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal("DL01CA0001", found.VehicleRegNo)
	s.Equal("City Motors", found.DealerName)
	s.True(found.Status.ReturnedToDealer)
	s.False(found.Status.RCTransferred)
	s.Nil(found.PDFURL)
	s.Equal(owner, found.CreatedBy)
	s.True(entry.CreatedAt.Equal(found.CreatedAt))

	owned, err := s.store.FindAll(s.ctx, models.OwnedBy(owner))
	s.Require().NoError(err)
	s.Len(owned, 1)
}

func (s *PostgresStoreSuite) TestDuplicateRegistration() {
	first := newTestEntry("DL01CA0002", domain.UserID(uuid.NewString()), time.Now())
	s.Require().NoError(s.store.Create(s.ctx, first))

	err := s.store.Create(s.ctx, newTestEntry("dl01ca0002", domain.UserID(uuid.NewString()), time.Now()))
	s.ErrorIs(err, store.ErrDuplicateRegistration)

	all, err := s.store.FindAll(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 1)
}

// TestConcurrentDuplicateCreates verifies the unique index decides races.
func (s *PostgresStoreSuite) TestConcurrentDuplicateCreates() {
	const workers = 10
	var (
		wg         sync.WaitGroup
		accepted   atomic.Int32
		duplicates atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(s.ctx, newTestEntry("RACE0001", domain.UserID(uuid.NewString()), time.Now()))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, store.ErrDuplicateRegistration):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), accepted.Load())
	s.Equal(int32(workers-1), duplicates.Load())
}

func (s *PostgresStoreSuite) TestListScopingAndOrder() {
	a := domain.UserID(uuid.NewString())
	b := domain.UserID(uuid.NewString())
	base := time.Now().Add(-time.Hour)
	for i := range 5 {
		s.Require().NoError(s.store.Create(s.ctx, newTestEntry(uuid.NewString(), a, base.Add(time.Duration(i)*time.Minute))))
	}
	for i := range 3 {
		s.Require().NoError(s.store.Create(s.ctx, newTestEntry(uuid.NewString(), b, base.Add(time.Duration(i)*time.Second))))
	}

	own, err := s.store.FindAll(s.ctx, models.OwnedBy(a))
	s.Require().NoError(err)
	s.Len(own, 5)
	for i := 1; i < len(own); i++ {
		s.True(own[i-1].CreatedAt.After(own[i].CreatedAt))
	}

	all, err := s.store.FindAll(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 8)
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	entry := newTestEntry("DL01CA0003", domain.UserID(uuid.NewString()), time.Now())
	s.Require().NoError(s.store.Create(s.ctx, entry))

	transferred := true
	url := "/utils/uploads/pdf-1-a.pdf"
	updated, err := s.store.Update(s.ctx, entry.ID, models.Patch{RCTransferred: &transferred, PDFURL: &url})
	s.Require().NoError(err)
	s.True(updated.Status.RCTransferred)
	s.Require().NotNil(updated.PDFURL)
	s.Equal(url, *updated.PDFURL)

	found, err := s.store.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.True(found.Status.RCTransferred)
	s.Equal(entry.CreatedBy, found.CreatedBy)

	_, err = s.store.Update(s.ctx, domain.NewEntryID(), models.Patch{RCTransferred: &transferred})
	s.ErrorIs(err, store.ErrNotFound)

	s.Require().NoError(s.store.Delete(s.ctx, entry.ID))
	s.ErrorIs(s.store.Delete(s.ctx, entry.ID), store.ErrNotFound)
}
