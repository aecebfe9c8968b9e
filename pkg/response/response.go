package response

import (
	"net/http"

	"anoa.com/storyverse/pkg/apperror"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/validator"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (primitive.ObjectID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, apperror.ErrUnauthorized
	}

	s, ok := userIDStr.(string)
	if !ok {
		return primitive.NilObjectID, apperror.ErrUnauthorized
	}

	userID, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperror.ErrUnauthorized
	}

	return userID, nil
}

// OptionalUserID returns the authenticated user if the request carries one.
func OptionalUserID(c *gin.Context) *primitive.ObjectID {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// ParamObjectID parses a path parameter as an ObjectID.
func ParamObjectID(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperror.New(http.StatusBadRequest, "invalid "+name, apperror.ErrBadRequest)
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.FullPath()).Error("internal error")
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error()})
		return
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// BindError reports a request binding failure as a 400 with readable field messages.
func BindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
}
