package handler

import "github.com/gin-gonic/gin"

// agencyIDKey is where the tenant middleware stores the validated agency id.
const agencyIDKey = "agency_id"

// SetAgencyID stores the validated agency id on the request context.
func SetAgencyID(c *gin.Context, agencyID string) {
	c.Set(agencyIDKey, agencyID)
}

// AgencyID returns the agency id set by the tenant middleware. Handlers
// are only registered behind that middleware, so an empty value means a
// wiring bug rather than a client error.
func AgencyID(c *gin.Context) string {
	return c.GetString(agencyIDKey)
}
