// Package http implements the HTTP handlers of the trading results API.
//
// Handlers stay thin: they bind query parameters into the request
// contracts of pkg/contracts/api/v1, validate them, call a service and
// render the result. Every error goes through apierrors.ErrorHandler so
// clients always receive RFC 7807 problem details.
//
// Routes:
//
//	GET /api/v1/trading/get_last_trading_dates?limit=10
//	GET /api/v1/trading/get_dynamics?start_date&end_date[&oil_id&delivery_type_id&delivery_basis_id]
//	GET /api/v1/trading/get_trading_results?oil_id[&delivery_type_id&delivery_basis_id]
//	GET /healthz
//	GET /readyz
//	GET /version
package http
