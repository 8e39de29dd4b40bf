package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/middleware"
	"marketplace/pkg/utils"
)

// currentUser returns the authenticated user, writing Unauthenticated when absent
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Fail(c, utils.ErrUnauthenticated)
		return "", false
	}
	return userID, true
}

// pathID reads and validates a UUID path parameter
func pathID(c *gin.Context, name string) (string, bool) {
	id, err := utils.ValidateID(c.Param(name))
	if err != nil {
		utils.Fail(c, err)
		return "", false
	}
	return id, true
}

func page(c *gin.Context) (int, int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// bind decodes the JSON body into obj, writing InvalidParam on failure
func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		utils.Fail(c, utils.BindError(err))
		return false
	}
	return true
}
