package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dafibh/revledger/revledger-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/swaggo/swag"
)

const jsonMediaType = "application/json"

// OpenAPIDocument is the OpenAPI 3.0 rendition of the generated Swagger 2.0 docs
type OpenAPIDocument struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// OpenAPIServer is one entry of the document's servers list
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// swaggerDoc holds the parts of a Swagger 2.0 document that are carried over
type swaggerDoc struct {
	Info                map[string]interface{} `json:"info"`
	BasePath            string                 `json:"basePath"`
	Consumes            []string               `json:"consumes"`
	Paths               map[string]interface{} `json:"paths"`
	Definitions         map[string]interface{} `json:"definitions"`
	SecurityDefinitions map[string]interface{} `json:"securityDefinitions"`
}

// OpenAPIHandler serves the API docs as OpenAPI 3.0
type OpenAPIHandler struct {
	hosts   []string
	readDoc func() (string, error)
}

// NewOpenAPIHandler creates a handler advertising hosts as servers. The
// documented base path is appended to each host.
func NewOpenAPIHandler(hosts []string) *OpenAPIHandler {
	return &OpenAPIHandler{
		hosts: hosts,
		readDoc: func() (string, error) {
			return swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		},
	}
}

// Serve handles GET /openapi.json
func (h *OpenAPIHandler) Serve(c echo.Context) error {
	raw, err := h.readDoc()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read API docs")
		return NewInternalError(c, "Failed to read API docs")
	}

	doc, err := h.Convert([]byte(raw))
	if err != nil {
		log.Error().Err(err).Msg("Failed to convert API docs")
		return NewInternalError(c, "Failed to convert API docs")
	}

	return c.JSON(http.StatusOK, doc)
}

// Convert turns a Swagger 2.0 document into OpenAPI 3.0
func (h *OpenAPIHandler) Convert(raw []byte) (*OpenAPIDocument, error) {
	var src swaggerDoc
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, fmt.Errorf("parse swagger doc: %w", err)
	}

	consumes := src.Consumes
	if len(consumes) == 0 {
		consumes = []string{jsonMediaType}
	}

	paths := make(map[string]interface{}, len(src.Paths))
	for path, item := range src.Paths {
		operations, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		converted := make(map[string]interface{}, len(operations))
		for method, op := range operations {
			if method == "parameters" {
				converted[method] = convertParameters(op)
				continue
			}
			if operation, ok := op.(map[string]interface{}); ok {
				converted[method] = convertOperation(operation, consumes)
			}
		}
		paths[path] = converted
	}

	components := make(map[string]interface{})
	if len(src.Definitions) > 0 {
		components["schemas"] = rewriteRefs(src.Definitions)
	}
	if len(src.SecurityDefinitions) > 0 {
		components["securitySchemes"] = src.SecurityDefinitions
	}

	servers := make([]OpenAPIServer, 0, len(h.hosts))
	for _, host := range h.hosts {
		host = strings.TrimRight(strings.TrimSpace(host), "/")
		if host == "" {
			continue
		}
		servers = append(servers, OpenAPIServer{URL: host + src.BasePath})
	}
	if len(servers) == 0 {
		servers = append(servers, OpenAPIServer{URL: src.BasePath})
	}

	return &OpenAPIDocument{
		OpenAPI:    "3.0.3",
		Info:       src.Info,
		Servers:    servers,
		Paths:      paths,
		Components: components,
	}, nil
}

// convertOperation moves body parameters into requestBody and response
// schemas into content.
func convertOperation(op map[string]interface{}, consumes []string) map[string]interface{} {
	out := make(map[string]interface{}, len(op))
	for key, value := range op {
		switch key {
		case "consumes", "produces":
		case "parameters":
			params, body := splitBodyParameter(value)
			if len(params) > 0 {
				out[key] = params
			}
			if body != nil {
				out["requestBody"] = requestBody(body, mediaTypes(op["consumes"], consumes))
			}
		case "responses":
			out[key] = convertResponses(value, mediaTypes(op["produces"], []string{jsonMediaType}))
		default:
			out[key] = rewriteRefs(value)
		}
	}
	return out
}

func splitBodyParameter(value interface{}) ([]interface{}, map[string]interface{}) {
	list, _ := value.([]interface{})
	params := make([]interface{}, 0, len(list))
	var body map[string]interface{}
	for _, item := range list {
		param, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if param["in"] == "body" {
			body = param
			continue
		}
		params = append(params, convertParameter(param))
	}
	return params, body
}

func convertParameters(value interface{}) []interface{} {
	params, _ := splitBodyParameter(value)
	return params
}

func requestBody(param map[string]interface{}, types []string) map[string]interface{} {
	content := make(map[string]interface{}, len(types))
	for _, t := range types {
		content[t] = map[string]interface{}{"schema": rewriteRefs(param["schema"])}
	}
	body := map[string]interface{}{"content": content}
	if required, ok := param["required"].(bool); ok {
		body["required"] = required
	}
	if description, ok := param["description"].(string); ok && description != "" {
		body["description"] = description
	}
	return body
}

// convertParameter nests the type fields of a non-body parameter under schema
func convertParameter(param map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	schema := make(map[string]interface{})
	for key, value := range param {
		switch key {
		case "type", "format", "enum", "default", "minimum", "maximum", "items":
			schema[key] = rewriteRefs(value)
		case "collectionFormat", "allowEmptyValue":
		default:
			out[key] = value
		}
	}
	if len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}

func convertResponses(value interface{}, types []string) interface{} {
	responses, ok := value.(map[string]interface{})
	if !ok {
		return value
	}
	out := make(map[string]interface{}, len(responses))
	for status, r := range responses {
		response, ok := r.(map[string]interface{})
		if !ok {
			out[status] = r
			continue
		}
		converted := make(map[string]interface{}, len(response))
		for key, v := range response {
			if key == "schema" {
				content := make(map[string]interface{}, len(types))
				for _, t := range types {
					content[t] = map[string]interface{}{"schema": rewriteRefs(v)}
				}
				converted["content"] = content
				continue
			}
			converted[key] = rewriteRefs(v)
		}
		out[status] = converted
	}
	return out
}

func mediaTypes(value interface{}, fallback []string) []string {
	list, _ := value.([]interface{})
	types := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			types = append(types, s)
		}
	}
	if len(types) == 0 {
		return fallback
	}
	return types
}

// rewriteRefs points #/definitions/ references at #/components/schemas/
func rewriteRefs(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			if ref, ok := item.(string); ok && key == "$ref" {
				out[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				continue
			}
			out[key] = rewriteRefs(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = rewriteRefs(item)
		}
		return out
	default:
		return value
	}
}
