package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthContext extracts the caller identity from gateway headers.
// SECURITY: No default supplier fallback - requests without a supplier
// identity are rejected by SupplierAccess.
func AuthContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		if role := c.GetHeader("X-User-Role"); role != "" {
			c.Set("user_role", role)
		}
		if supplierID := c.GetHeader("X-Supplier-ID"); supplierID != "" {
			c.Set("supplier_id", supplierID)
		}
		c.Next()
	}
}

// SupplierAccess ensures the caller may act on the supplier named in the
// route. Admins may act on any supplier; everyone else only on their own.
func SupplierAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		pathSupplier := c.Param("supplierId")
		if pathSupplier == "" {
			c.Next()
			return
		}

		if c.GetString("user_role") == "admin" {
			c.Next()
			return
		}

		callerSupplier := c.GetString("supplier_id")
		if callerSupplier == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SUPPLIER_REQUIRED",
					"message": "Supplier identity is required. Include X-Supplier-ID header.",
				},
			})
			c.Abort()
			return
		}

		if callerSupplier != pathSupplier {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "You do not have access to this supplier's catalog",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
