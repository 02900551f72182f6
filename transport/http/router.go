package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/kdvector"

	mcpE "github.com/flarexio/kdvector/mcp"
)

func AddRouters(r *gin.Engine, endpoints kdvector.EndpointSet) {
	r.Use(CORS(), RequestID())

	// Routes served to the resume frontend
	r.POST("/upload_resume", UploadResumeHandler(endpoints.Upload))
	r.POST("/query", QueryHandler(endpoints.Query))
	r.POST("/clear", ClearHandler(endpoints.Clear))
	r.GET("/stats", StatsHandler(endpoints.Stats))

	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/documents", UploadHandler(endpoints.Upload))
		api.GET("/search", SearchHandler(endpoints.Query))
		api.POST("/vectors", InsertHandler(endpoints.Insert))
		api.POST("/vectors/search", QueryVectorHandler(endpoints.QueryVector))
		api.GET("/vectors/:id", MetadataHandler(endpoints.Metadata))
		api.DELETE("/vectors", ClearHandler(endpoints.Clear))
		api.GET("/stats", StatsHandler(endpoints.Stats))
		api.POST("/snapshot", SaveHandler(endpoints.Save))
		api.POST("/snapshot/load", LoadHandler(endpoints.Load))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
