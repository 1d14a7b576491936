package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

var (
	owner    = Principal{ID: "u-1", Role: RoleUser}
	stranger = Principal{ID: "u-2", Role: RoleUser}
	operator = Principal{ID: "a-1", Role: RoleAdmin}
)

func TestOrderPolicy(t *testing.T) {
	tests := []struct {
		name    string
		check   func(Principal) error
		allowed []Principal
		denied  []Principal
	}{
		{"read", func(p Principal) error { return CanReadOrder(p, owner.ID) }, []Principal{owner, operator}, []Principal{stranger}},
		{"cancel", func(p Principal) error { return CanCancelOrder(p, owner.ID) }, []Principal{owner, operator}, []Principal{stranger}},
		{"set status", CanSetOrderStatus, []Principal{operator}, []Principal{owner, stranger}},
		{"list all", CanListAllOrders, []Principal{operator}, []Principal{owner}},
		{"catalog", CanMutateCatalog, []Principal{operator}, []Principal{owner}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, p := range tc.allowed {
				assert.NoError(t, tc.check(p), p.ID)
			}
			for _, p := range tc.denied {
				var de *apperr.AccessDeniedError
				assert.ErrorAs(t, tc.check(p), &de, p.ID)
			}
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), operator)
	p, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, operator, p)
}
