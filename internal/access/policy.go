package access

import "github.com/dmehra2102/storefront/pkg/apperr"

// RequireOperator allows only the admin role to perform action.
func RequireOperator(p Principal, action string) error {
	if p.IsOperator() {
		return nil
	}
	return apperr.AccessDenied("only an operator may " + action)
}

func CanReadOrder(p Principal, ownerID string) error {
	if p.IsOperator() || p.ID == ownerID {
		return nil
	}
	return apperr.AccessDenied("order belongs to another user")
}

func CanCancelOrder(p Principal, ownerID string) error {
	if p.IsOperator() || p.ID == ownerID {
		return nil
	}
	return apperr.AccessDenied("only the owner or an operator may cancel this order")
}

// CanSetOrderStatus guards the administrative status path, which is the only
// way to complete an order.
func CanSetOrderStatus(p Principal) error {
	return RequireOperator(p, "change order status")
}

func CanListAllOrders(p Principal) error {
	return RequireOperator(p, "list all orders")
}

func CanMutateCatalog(p Principal) error {
	return RequireOperator(p, "modify the product catalog")
}
