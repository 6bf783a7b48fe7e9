package service

import (
	"testing"

	"github.com/maschat/masscoin-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionRequest(t *testing.T) {
	cases := []struct {
		name    string
		current string
		next    string
		want    bool
	}{
		{"pending to approved", domain.RequestStatusPending, domain.RequestStatusApproved, true},
		{"pending to rejected", domain.RequestStatusPending, domain.RequestStatusRejected, true},
		{"pending to expired", domain.RequestStatusPending, domain.RequestStatusExpired, true},
		{"approved is terminal", domain.RequestStatusApproved, domain.RequestStatusRejected, false},
		{"rejected is terminal", domain.RequestStatusRejected, domain.RequestStatusApproved, false},
		{"expired is terminal", domain.RequestStatusExpired, domain.RequestStatusApproved, false},
		{"pending to pending", domain.RequestStatusPending, domain.RequestStatusPending, false},
		{"case and whitespace tolerant", " pending ", "approved", true},
		{"unknown state", "LIMBO", domain.RequestStatusApproved, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canTransitionRequest(tc.current, tc.next))
		})
	}
}
