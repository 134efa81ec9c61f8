package v1

import (
	"github.com/gin-gonic/gin"
)

// KeyedRouteHandler is a resource addressed by one path key that can be read,
// replaced and removed.
type KeyedRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Put(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterKeyedRoutes registers GET /, GET|PUT|DELETE /:key on group.
func RegisterKeyedRoutes(group *gin.RouterGroup, key string, handler KeyedRouteHandler) {
	group.GET("", handler.List)
	group.GET("/:"+key, handler.Get)
	group.PUT("/:"+key, handler.Put)
	group.DELETE("/:"+key, handler.Delete)
}
