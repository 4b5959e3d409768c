package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rctrack/internal/dashboard/service"
	rcmodels "rctrack/internal/rc/models"
	rcstore "rctrack/internal/rc/store"
	"rctrack/pkg/domain"
	"rctrack/pkg/testutil"
)

func TestDashboardEndpoints(t *testing.T) {
	entries := rcstore.NewInMemory()
	alice := testutil.NewStaff("alice")
	bob := testutil.NewStaff("bob")
	for i, s := range []struct {
		owner       domain.UserID
		transferred bool
		fees        bool
	}{
		{alice.ID, true, true},
		{alice.ID, false, true},
		{bob.ID, false, false},
	} {
		require.NoError(t, entries.Create(context.Background(), &rcmodels.Entry{
			ID:        domain.NewEntryID(),
			Details:   rcmodels.Details{VehicleRegNo: string(rune('A' + i))},
			Status:    rcmodels.Status{RCTransferred: s.transferred, RTOFeesPaid: s.fees},
			CreatedBy: s.owner,
			CreatedAt: time.Now(),
		}))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(service.New(entries, service.WithLogger(logger)), logger).Register(r)

	t.Run("all scope", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodGet, "/dashboard"), alice))
		testutil.AssertStatusOK(t, rr)
		assert.JSONEq(t, `{"success":true,"data":{"scope":"all","ownerName":"alice",
			"rcStats":{"totalRc":3,"totalRcTransferred":1,"totalRtoFeeDone":2,"totalRcTransferLeft":2}}}`, rr.Body.String())
	})

	t.Run("owner scope", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.WithPrincipal(testutil.NewRequest(t, http.MethodGet, "/dashboard/owner"), bob))
		testutil.AssertStatusOK(t, rr)
		assert.JSONEq(t, `{"success":true,"data":{"scope":"owner","ownerName":"bob",
			"rcStats":{"totalRc":1,"totalRcTransferred":0,"totalRtoFeeDone":0,"totalRcTransferLeft":1}}}`, rr.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/dashboard"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
