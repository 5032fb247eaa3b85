//go:build integration

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"petadopt/internal/model"
	"petadopt/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdopt_ConcurrentSameUser(t *testing.T) {
	db := testutil.NewMySQLDB(t)
	svc := newAdoptionService(db, nil)

	user := testutil.CreateUser(t, db, "500")
	pets := make([]*model.Pet, 5)
	for i := range pets {
		pets[i] = testutil.CreatePet(t, db, "300")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, pet := range pets {
		wg.Add(1)
		go func(petID int64) {
			defer wg.Done()
			_, err := svc.Adopt(context.Background(), user.ID, petID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(pet.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, rejected)
	assert.True(t, testutil.ReloadUser(t, db, user.ID).AccountBalance.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Adopt{}))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.AdoptionHistory{}))
}

func TestAdopt_ConcurrentSamePet(t *testing.T) {
	db := testutil.NewMySQLDB(t)
	svc := newAdoptionService(db, nil)

	pet := testutil.CreatePet(t, db, "300")
	users := make([]*model.User, 5)
	for i := range users {
		users[i] = testutil.CreateUser(t, db, "500")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, user := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Adopt(context.Background(), userID, pet.ID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if !errors.Is(err, ErrPetUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(user.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.AdoptionHistory{}))
}

func TestConfirm_ConcurrentCallbacks(t *testing.T) {
	db := testutil.NewMySQLDB(t)
	svc := newPaymentService(db, &fakeGateway{})

	_, history := adoptPet(t, db, "500", "300")
	tranID := FormatTransactionID(history.ID)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		duplicates int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(context.Background(), tranID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrDuplicateTransaction):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	assert.Equal(t, 4, duplicates)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Payment{}))
}
