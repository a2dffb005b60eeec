package server

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the gin router.
func SetupRouter(api *API, events *EventStream) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	{
		v1.GET("/state", api.state)
		v1.POST("/play/:key", api.play)
		v1.POST("/stop/:key", api.stopSound)
		v1.POST("/pause", api.pause)
		v1.POST("/resume", api.resume)
		v1.POST("/stop", api.stop)

		v1.GET("/presets", api.listPresets)
		v1.POST("/presets", api.savePreset)
		v1.POST("/presets/random", api.playRandom)
		v1.POST("/presets/skip", api.skipPreset)
		v1.POST("/presets/:id/play", api.playPreset)
		v1.DELETE("/presets/:id", api.deletePreset)

		v1.POST("/output/usage", api.setUsage)
		v1.POST("/cast/begin", api.castBegin)
		v1.POST("/cast/end", api.castEnd)

		v1.GET("/events", events.Serve)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
