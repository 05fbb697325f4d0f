package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

func (app *App) handleCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (app *App) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, app.limits.Stats())
}

func (app *App) listClients(c *gin.Context) {
	c.JSON(http.StatusOK, app.limits.Clients())
}

func (app *App) blockClient(c *gin.Context) {
	clientID := c.Param("id")
	if err := app.limits.Block(clientID); err != nil {
		if errors.Is(err, limiter.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if app.archive != nil {
		app.archive.MarkBlocked(clientID)
	}
	logger := requestLogger(c, app.logger)
	logger.Info().Str("client_id", clientID).Msg("Client blocked")
	c.JSON(http.StatusOK, gin.H{"status": "blocked", "clientId": clientID})
}

func (app *App) removeClient(c *gin.Context) {
	clientID := c.Param("id")
	app.limits.RemoveClient(clientID)
	c.JSON(http.StatusOK, gin.H{"status": "removed", "clientId": clientID})
}

func (app *App) listViolations(c *gin.Context) {
	c.JSON(http.StatusOK, app.limits.Violations())
}

func (app *App) getPolicy(c *gin.Context) {
	pol, ok := app.limits.Policy()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active policy"})
		return
	}
	c.JSON(http.StatusOK, pol)
}

// updatePolicy replaces the active policy wholesale. The engine clears all
// client state as part of the swap; the new policy is also persisted so it
// survives restarts.
func (app *App) updatePolicy(c *gin.Context) {
	var pol limiter.Policy
	if err := c.ShouldBindJSON(&pol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := app.limits.SetPolicy(pol); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if app.db != nil {
		if err := savePolicyRecord(app.db, pol); err != nil {
			logger := requestLogger(c, app.logger)
			logger.Warn().Err(err).Msg("Failed to persist policy")
		}
	}
	c.JSON(http.StatusOK, pol)
}
