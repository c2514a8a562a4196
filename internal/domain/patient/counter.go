package patient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

const (
	pRegPrefix = "PR-"

	// counterName keys the single counter row/document.
	counterName = "patientCounter"

	// maxAllocAttempts bounds retries of a contended allocation.
	maxAllocAttempts = 5
)

// Allocator hands out sequential PReg identifiers.
type Allocator struct {
	store CounterStore
}

func NewAllocator(store CounterStore) *Allocator {
	return &Allocator{store: store}
}

// Allocate returns the next identifier, "PR-1" on first use. Two concurrent
// calls never receive the same value.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	n, err := a.store.Next(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTransientStore {
			return "", err
		}
		return "", fmt.Errorf("allocate patient id: %w", err)
	}
	return FormatPReg(n), nil
}

// SetCounter overwrites the stored value; the next allocation yields n+1.
// No collision check is made against existing ids.
func (a *Allocator) SetCounter(ctx context.Context, n int64) error {
	if n < 0 {
		return apperr.Validation("lastPRegNumber must be a non-negative integer")
	}
	if err := a.store.Set(ctx, n); err != nil {
		return fmt.Errorf("set patient counter: %w", err)
	}
	return nil
}

func FormatPReg(n int64) string {
	return pRegPrefix + strconv.FormatInt(n, 10)
}

// ParsePReg extracts n from "PR-<n>" (any case) or a bare number.
func ParsePReg(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(pRegPrefix) && strings.EqualFold(s[:len(pRegPrefix)], pRegPrefix) {
		s = s[len(pRegPrefix):]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// allocBackoff grows quadratically from 10ms and adds up to the same amount
// again in jitter, so retrying callers spread out.
func allocBackoff(attempt int) time.Duration {
	base := time.Duration(attempt*attempt) * 10 * time.Millisecond
	return base + rand.N(base)
}
