// Package openapi embeds the API description and validates requests against it.
package openapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/medwatch/pkg/api"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var document []byte

// Document returns the raw OpenAPI document
func Document() []byte {
	return document
}

// Load parses and validates the embedded OpenAPI document
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

// ServeDocument serves the OpenAPI document as YAML
func ServeDocument(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", document)
}

// ValidationMiddleware rejects requests that do not match the document.
// Paths the document does not describe, such as /metrics, pass through.
func ValidationMiddleware(doc *openapi3.T, logger *zap.Logger) (gin.HandlerFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if errors.Is(err, routers.ErrPathNotFound) {
				c.Next()
				return
			}
			details := err.Error()
			status := http.StatusBadRequest
			if errors.Is(err, routers.ErrMethodNotAllowed) {
				status = http.StatusMethodNotAllowed
			}
			c.AbortWithStatusJSON(status, api.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Request does not match any API operation",
				Details: &details,
			})
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			logger.Warn("request failed schema validation",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			details := err.Error()
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Request does not match the API schema",
				Details: &details,
			})
			return
		}

		c.Next()
	}, nil
}
