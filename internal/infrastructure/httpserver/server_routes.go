package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.ClientIdentity.ResolveClient())
	admit := s.middleware.RateLimit.Handler()

	// Reads are only counted when the policy scope is "all"; the middleware checks.
	campaigns := api.Group("/campaigns", admit)
	campaigns.GET("", s.getOrEnsureCampaign)
	campaigns.GET("/all", s.listCampaigns)
	campaigns.GET("/:id", s.getCampaign)

	// Admission runs before the body is decoded; the pipeline reuses the decision.
	api.POST("/orders", s.submitOrder, admit)
	api.POST("/notify", s.subscribe, admit)

	api.POST("/setup", s.seedCatalog, admit)
}
