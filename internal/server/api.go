// Package server provides the HTTP control surface for the engine.
package server

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/quietfall/quietfall/internal/app/engine"
	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/infra/cast"
	"github.com/quietfall/quietfall/internal/infra/presetstore"
)

// API handles the HTTP control endpoints.
type API struct {
	manager *engine.Manager
	store   *presetstore.Store
	route   *cast.RouteProvider
}

// NewAPI creates a new API handler.
func NewAPI(manager *engine.Manager, store *presetstore.Store, route *cast.RouteProvider) *API {
	return &API{manager: manager, store: store, route: route}
}

// StateResponse is the response for the state endpoint.
type StateResponse struct {
	State   string                  `json:"state"`
	Casting bool                    `json:"casting"`
	Players []engine.PlayerSnapshot `json:"players"`
}

// SkipRequest is the request body for the skip endpoint.
type SkipRequest struct {
	Direction string `json:"direction" binding:"required,oneof=prev next"`
}

// RandomRequest is the request body for the random-preset endpoint.
type RandomRequest struct {
	Tag       string `json:"tag"`
	MinSounds int    `json:"minSounds" binding:"required,gte=1"`
	MaxSounds int    `json:"maxSounds" binding:"required,gte=1"`
}

// SaveRequest is the request body for saving the live mix as a preset.
type SaveRequest struct {
	Name string `json:"name" binding:"required"`
}

// UsageRequest is the request body for the output-usage endpoint.
type UsageRequest struct {
	Usage string `json:"usage" binding:"required,oneof=media alarm"`
}

func (a *API) state(c *gin.Context) {
	c.JSON(http.StatusOK, StateResponse{
		State:   a.manager.State().String(),
		Casting: a.route.Active(),
		Players: a.manager.Players(),
	})
}

func (a *API) play(c *gin.Context) {
	if err := a.manager.Play(c.Param("key")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) stopSound(c *gin.Context) {
	a.manager.StopSound(c.Param("key"))
	c.Status(http.StatusNoContent)
}

func (a *API) pause(c *gin.Context) {
	a.manager.Pause()
	c.Status(http.StatusNoContent)
}

func (a *API) resume(c *gin.Context) {
	a.manager.Resume()
	c.Status(http.StatusNoContent)
}

func (a *API) stop(c *gin.Context) {
	a.manager.Stop()
	c.Status(http.StatusNoContent)
}

func (a *API) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, a.store.List())
}

func (a *API) playPreset(c *gin.Context) {
	if err := a.manager.PlayPresetByID(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) playRandom(c *gin.Context) {
	var req RandomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := a.manager.PlayRandomPreset(req.Tag, req.MinSounds, req.MaxSounds)
	switch {
	case errors.Is(err, engine.ErrInvalidSizeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (a *API) skipPreset(c *gin.Context) {
	var req SkipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	direction := engine.SkipNext
	if req.Direction == "prev" {
		direction = engine.SkipPrev
	}
	if err := a.manager.SkipPreset(direction); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) savePreset(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current := a.manager.CurrentPreset()
	if len(current.States) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "nothing is playing"})
		return
	}

	// An equivalent preset already saved wins over a duplicate.
	if i := a.store.FindEquivalent(&current); i >= 0 {
		c.JSON(http.StatusOK, a.store.List()[i])
		return
	}

	saved, err := a.store.Save(preset.Preset{Name: req.Name, States: current.States})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (a *API) deletePreset(c *gin.Context) {
	err := a.store.Delete(c.Param("id"))
	switch {
	case errors.Is(err, presetstore.ErrPresetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (a *API) setUsage(c *gin.Context) {
	var req UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	usage := engine.UsageMedia
	if req.Usage == "alarm" {
		usage = engine.UsageAlarm
	}
	a.manager.SetOutputUsage(usage)
	c.Status(http.StatusNoContent)
}

func (a *API) castBegin(c *gin.Context) {
	err := a.route.OnRouteBegin()
	switch {
	case errors.Is(err, cast.ErrNoReceiver):
		c.JSON(http.StatusConflict, gin.H{"error": "no cast receiver configured"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (a *API) castEnd(c *gin.Context) {
	a.route.OnRouteEnd()
	c.Status(http.StatusNoContent)
}
