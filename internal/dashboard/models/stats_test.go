package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	rcmodels "rctrack/internal/rc/models"
)

func entry(transferred, feesPaid, returned bool) *rcmodels.Entry {
	return &rcmodels.Entry{Status: rcmodels.Status{
		RCTransferred:    transferred,
		RTOFeesPaid:      feesPaid,
		ReturnedToDealer: returned,
	}}
}

func TestComputeStats(t *testing.T) {
	t.Run("mixed entries", func(t *testing.T) {
		got := ComputeStats([]*rcmodels.Entry{
			entry(true, true, false),
			entry(false, true, false),
			entry(false, false, true),
		})
		assert.Equal(t, Stats{TotalRC: 3, TotalTransferred: 1, TotalFeesPaid: 2, TotalPendingTransfer: 2}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, Stats{}, ComputeStats(nil))
	})

	t.Run("returned to dealer does not count as transferred", func(t *testing.T) {
		got := ComputeStats([]*rcmodels.Entry{entry(false, false, true)})
		assert.Equal(t, 1, got.TotalPendingTransfer)
		assert.Zero(t, got.TotalTransferred)
	})
}

func genEntries() *rapid.Generator[[]*rcmodels.Entry] {
	return rapid.SliceOf(rapid.Custom(func(t *rapid.T) *rcmodels.Entry {
		return entry(rapid.Bool().Draw(t, "transferred"), rapid.Bool().Draw(t, "fees"), rapid.Bool().Draw(t, "returned"))
	}))
}

func TestComputeStatsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries().Draw(t, "entries")
		s := ComputeStats(entries)

		if s.TotalRC != len(entries) {
			t.Fatalf("totalRc %d != len %d", s.TotalRC, len(entries))
		}
		if s.TotalTransferred+s.TotalPendingTransfer != s.TotalRC {
			t.Fatalf("transferred %d + pending %d != total %d", s.TotalTransferred, s.TotalPendingTransfer, s.TotalRC)
		}
		if s.TotalFeesPaid > s.TotalRC {
			t.Fatalf("fees paid %d exceeds total %d", s.TotalFeesPaid, s.TotalRC)
		}
	})
}

func TestComputeStatsIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries().Draw(t, "entries")
		reversed := make([]*rcmodels.Entry, len(entries))
		for i, e := range entries {
			reversed[len(entries)-1-i] = e
		}
		if ComputeStats(entries) != ComputeStats(reversed) {
			t.Fatalf("order changed the result")
		}
	})
}

func TestComputeStatsIsAdditive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genEntries().Draw(t, "a")
		b := genEntries().Draw(t, "b")
		sa, sb := ComputeStats(a), ComputeStats(b)
		got := ComputeStats(append(append([]*rcmodels.Entry{}, a...), b...))
		want := Stats{
			TotalRC:              sa.TotalRC + sb.TotalRC,
			TotalTransferred:     sa.TotalTransferred + sb.TotalTransferred,
			TotalFeesPaid:        sa.TotalFeesPaid + sb.TotalFeesPaid,
			TotalPendingTransfer: sa.TotalPendingTransfer + sb.TotalPendingTransfer,
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}
