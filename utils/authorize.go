package utils

import (
	"errors"

	"libraryapi/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthorizeRole reports whether userRole is one of allowedRoles.
func AuthorizeRole(userRole string, allowedRoles ...string) (bool, error) {
	for _, allowedRole := range allowedRoles {
		if allowedRole == userRole {
			return true, nil
		}
	}

	return false, errors.New("user is not authorized")
}

// CanModify decides whether principal may update or delete a book owned by
// owner: the owner itself or any admin. Ids are compared by their hex form,
// which is how owner references have always been stored.
func CanModify(principal models.Principal, owner bson.ObjectID) bool {
	if principal.Role == models.RoleAdmin {
		return true
	}
	return principal.ID != "" && principal.ID == owner.Hex()
}
