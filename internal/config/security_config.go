// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// Route names as registered on the HTTP router.
const (
	RouteHealth            = "Health"
	RouteFileDownload      = "FileDownload"
	RouteStartHandoff      = "StartHandoff"
	RouteGetHandoff        = "GetHandoff"
	RouteCapturePhoto      = "CapturePhoto"
	RouteSkipPhotos        = "SkipPhotos"
	RouteSaveConditions    = "SaveConditions"
	RouteSkipConditions    = "SkipConditions"
	RouteReportDamage      = "ReportDamage"
	RouteFinishDamages     = "FinishDamages"
	RouteExchangeKeys      = "ExchangeKeys"
	RouteAddSignature      = "AddSignature"
	RouteFinalizeHandoff   = "FinalizeHandoff"
	RouteReconcile         = "Reconcile"
	RoutePriorDamages      = "PriorDamages"
	RouteSubmitReview      = "SubmitReview"
	RouteListReviews       = "ListReviews"
	RouteProgressWebsocket = "ProgressWebsocket"
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Public
	RouteHealth:       SecurityPublic,
	RouteFileDownload: SecurityPublic,

	// Hand-off - Access Protected
	RouteStartHandoff:    SecurityAccess,
	RouteGetHandoff:      SecurityAccess,
	RouteCapturePhoto:    SecurityAccess,
	RouteSkipPhotos:      SecurityAccess,
	RouteSaveConditions:  SecurityAccess,
	RouteSkipConditions:  SecurityAccess,
	RouteReportDamage:    SecurityAccess,
	RouteFinishDamages:   SecurityAccess,
	RouteExchangeKeys:    SecurityAccess,
	RouteAddSignature:    SecurityAccess,
	RouteFinalizeHandoff: SecurityAccess,

	// Reservation - Access Protected
	RouteReconcile:    SecurityAccess,
	RoutePriorDamages: SecurityAccess,

	// Reviews - Access Protected
	RouteSubmitReview: SecurityAccess,
	RouteListReviews:  SecurityAccess,

	// Progress feed - Access Protected (token may come as a query parameter)
	RouteProgressWebsocket: SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
