// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinterlante1206/AleutianPractice/services/practice/attempts"
	"github.com/jinterlante1206/AleutianPractice/services/practice/handlers"
	"github.com/jinterlante1206/AleutianPractice/services/practice/observability"
	"github.com/jinterlante1206/AleutianPractice/services/practice/pieces"
	"github.com/jinterlante1206/AleutianPractice/services/practice/session"
	"github.com/jinterlante1206/AleutianPractice/services/practice/store"
)

// Deps bundles everything the route table needs. StateCell is nil unless
// this instance also acts as the remote state host.
type Deps struct {
	Machine   *session.Machine
	Pieces    *pieces.Repository
	Attempts  *attempts.Repository
	Registry  *handlers.ConnRegistry
	Metrics   *observability.PracticeMetrics
	StateCell *store.Local
}

// SetupRoutes registers every endpoint of the practice service.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		practice := v1.Group("/practice")
		{
			practice.POST("/start", handlers.StartSession(deps.Machine, deps.Metrics))
			practice.POST("/note", handlers.SubmitNote(deps.Machine, deps.Metrics))
			practice.POST("/end", handlers.EndSession(deps.Machine, deps.Metrics))
			practice.GET("/state", handlers.GetState(deps.Machine))
			practice.GET("/ws", handlers.HandleSessionWebSocket(deps.Machine, deps.Registry, deps.Metrics))
			practice.GET("/pieces", handlers.ListPieces(deps.Pieces))
			practice.GET("/attempts", handlers.ListAttempts(deps.Attempts))
		}

		if deps.StateCell != nil {
			state := v1.Group("/state")
			{
				state.GET("/session", handlers.StateGet(deps.StateCell))
				state.PUT("/session", handlers.StateSet(deps.StateCell))
				state.DELETE("/session", handlers.StateClear(deps.StateCell))
			}
		}
	}
}
