package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"api-go-template/internal/item"
)

// listQuery reads page and limit. Unparseable or non-positive values take
// the defaults.
func listQuery(c *gin.Context) item.ListQuery {
	return item.ListQuery{
		Page:  positiveInt(c.Query("page"), item.DefaultPage),
		Limit: positiveInt(c.Query("limit"), item.DefaultLimit),
	}
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
