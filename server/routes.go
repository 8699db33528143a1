package server

const (
	RouteLogin        = "/auth/login"
	RouteRegister     = "/auth/register"
	RouteRefresh      = "/auth/refresh"
	RouteLogout       = "/auth/logout"
	RouteResetRequest = "/auth/reset/request"
	RouteResetConfirm = "/auth/reset/confirm"
	RouteMe           = "/auth/me"
	RouteApprove      = "/auth/approve/{user_id}"
	RouteHealth       = "/health"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Method-scoped patterns never match OPTIONS, so preflights get their
	// own catch-all route. CorsMiddleware answers them before the handler.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetRequest, ChainMiddleware(s.ResetRequestHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetConfirm, ChainMiddleware(s.ResetConfirmHandler(), s.APIMiddleware()...))

	// Protected endpoints (require a valid access token)
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.AuthenticatedAPIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteApprove, ChainMiddleware(s.ApproveHandler(), s.AdminAPIMiddleware()...))
}
