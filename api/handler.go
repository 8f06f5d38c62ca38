package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/getscimly/scimly/engine"
	"github.com/getscimly/scimly/filter"
	"github.com/getscimly/scimly/logger"
	"github.com/getscimly/scimly/ratelimit"
	"github.com/getscimly/scimly/schema"
	"github.com/getscimly/scimly/tenant"
)

const (
	listResponseURN = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	patchOpURN      = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	errorURN        = "urn:ietf:params:scim:api:messages:2.0:Error"
)

// Handler wires the resource engines onto SCIM v2 routes. Every route is
// tenant-prefixed; the middleware chain authenticates the caller, resolves
// the tenant, and admits the request through the rate gate before any
// resource logic runs.
type Handler struct {
	engines map[engine.Kind]*engine.Engine
	gate    *ratelimit.Gate
	tenants *tenant.Loader
	auth    *Authenticator
}

func NewHandler(engines map[engine.Kind]*engine.Engine, gate *ratelimit.Gate, tenants *tenant.Loader, auth *Authenticator) *Handler {
	return &Handler{engines: engines, gate: gate, tenants: tenants, auth: auth}
}

// RegisterRoutes mounts the resource collections under
// /:tenant/scim/v2. The rate gate runs after tenant resolution so that
// per-tenant ceiling overrides can apply; it still rejects before any
// payload validation or storage access, and unauthenticated requests
// never consume a rate window.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	scim := g.Group("/:tenant/scim/v2", h.AuthMiddleware, h.TenantMiddleware, h.RateLimitMiddleware)

	for kind, eng := range h.engines {
		collection := "/" + string(kind) + "s"
		scim.POST(collection, h.handleCreate(eng))
		scim.GET(collection, h.handleList(eng))
		scim.GET(collection+"/:id", h.handleGet(eng))
		scim.PUT(collection+"/:id", h.handleReplace(eng))
		scim.PATCH(collection+"/:id", h.handlePatch(eng))
		scim.DELETE(collection+"/:id", h.handleDelete(eng))

		for _, rel := range eng.Descriptor().Relations {
			name := rel.Name
			scim.POST(collection+"/:id/"+name, h.handleAddRelation(eng, name))
			scim.DELETE(collection+"/:id/"+name+"/:relatedId", h.handleRemoveRelation(eng, name))
		}
	}
}

func (h *Handler) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cred, err := h.auth.Credential(c.Request())
		if err != nil {
			return h.writeError(c, err)
		}
		c.Set("credential", cred)
		return next(c)
	}
}

func (h *Handler) TenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("tenant")
		if err := tenant.ValidateID(id); err != nil {
			return h.writeError(c, err)
		}
		cfg := h.tenants.Config(id)
		c.Set("tenantID", id)
		c.SetRequest(c.Request().WithContext(tenant.WithConfig(c.Request().Context(), cfg)))
		return next(c)
	}
}

func (h *Handler) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cred, _ := c.Get("credential").(string)
		class := classFor(c.Request().Method)

		override := 0
		if cfg, ok := tenant.FromContext(c.Request().Context()); ok {
			override = cfg.RateCeiling(string(class))
		}
		if err := h.gate.Admit(c.Request().Context(), cred, class, override); err != nil {
			return h.writeError(c, err)
		}
		return next(c)
	}
}

// classFor buckets HTTP methods into rate classes. PUT and PATCH share
// the update window.
func classFor(method string) ratelimit.Class {
	switch method {
	case http.MethodPost:
		return ratelimit.ClassCreate
	case http.MethodPut, http.MethodPatch:
		return ratelimit.ClassUpdate
	case http.MethodDelete:
		return ratelimit.ClassDelete
	default:
		return ratelimit.ClassRead
	}
}

func (h *Handler) handleCreate(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var payload map[string]any
		if err := c.Bind(&payload); err != nil {
			return h.scimError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a JSON object")
		}
		delete(payload, "schemas")

		tid := c.Get("tenantID").(string)
		ent, err := eng.Create(c.Request().Context(), tid, payload)
		if err != nil {
			return h.writeError(c, err)
		}

		doc := engine.Project(eng.Descriptor(), ent, basePath(tid))
		if meta, ok := doc["meta"].(map[string]any); ok {
			if loc, ok := meta["location"].(string); ok {
				c.Response().Header().Set("Location", loc)
			}
		}
		logger.Log.Info("resource created",
			zap.String("tenant", tid),
			zap.String("kind", string(ent.Kind)),
			zap.String("id", ent.ID))
		return c.JSON(http.StatusCreated, doc)
	}
}

func (h *Handler) handleGet(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		tid := c.Get("tenantID").(string)
		ent, err := eng.Get(c.Request().Context(), tid, c.Param("id"))
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, engine.Project(eng.Descriptor(), ent, basePath(tid)))
	}
}

func (h *Handler) handleList(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		tid := c.Get("tenantID").(string)

		req, err := pageRequest(c)
		if err != nil {
			return h.writeError(c, err)
		}
		page, err := eng.List(c.Request().Context(), tid, c.QueryParam("filter"), req)
		if err != nil {
			return h.writeError(c, err)
		}

		resources := make([]map[string]any, 0, len(page.Resources))
		for _, ent := range page.Resources {
			resources = append(resources, engine.Project(eng.Descriptor(), ent, basePath(tid)))
		}
		return c.JSON(http.StatusOK, map[string]any{
			"schemas":      []string{listResponseURN},
			"totalResults": page.TotalResults,
			"startIndex":   page.StartIndex,
			"itemsPerPage": page.ItemsPerPage,
			"Resources":    resources,
		})
	}
}

func (h *Handler) handleReplace(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var payload map[string]any
		if err := c.Bind(&payload); err != nil {
			return h.scimError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a JSON object")
		}
		delete(payload, "schemas")

		tid := c.Get("tenantID").(string)
		ent, err := eng.Replace(c.Request().Context(), tid, c.Param("id"), payload)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, engine.Project(eng.Descriptor(), ent, basePath(tid)))
	}
}

func (h *Handler) handlePatch(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Schemas    []string         `json:"schemas"`
			Operations []engine.PatchOp `json:"Operations"`
		}
		if err := c.Bind(&body); err != nil {
			return h.scimError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid patch document")
		}
		if len(body.Operations) == 0 {
			return h.scimError(c, http.StatusBadRequest, "invalidValue", "patch document has no operations")
		}

		tid := c.Get("tenantID").(string)
		ent, err := eng.Patch(c.Request().Context(), tid, c.Param("id"), body.Operations)
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON(http.StatusOK, engine.Project(eng.Descriptor(), ent, basePath(tid)))
	}
}

func (h *Handler) handleDelete(eng *engine.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		tid := c.Get("tenantID").(string)
		if err := eng.Delete(c.Request().Context(), tid, c.Param("id")); err != nil {
			return h.writeError(c, err)
		}
		logger.Log.Info("resource deleted",
			zap.String("tenant", tid),
			zap.String("kind", string(eng.Descriptor().Kind)),
			zap.String("id", c.Param("id")))
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *Handler) handleAddRelation(eng *engine.Engine, relName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Value string `json:"value"`
		}
		if err := c.Bind(&body); err != nil || body.Value == "" {
			return h.scimError(c, http.StatusBadRequest, "invalidValue", "request body must carry the related resource id in \"value\"")
		}

		tid := c.Get("tenantID").(string)
		if err := eng.AddRelation(c.Request().Context(), tid, relName, c.Param("id"), body.Value); err != nil {
			return h.writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *Handler) handleRemoveRelation(eng *engine.Engine, relName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		tid := c.Get("tenantID").(string)
		if err := eng.RemoveRelation(c.Request().Context(), tid, relName, c.Param("id"), c.Param("relatedId")); err != nil {
			return h.writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func basePath(tenantID string) string {
	return "/" + tenantID + "/scim/v2"
}

// pageRequest parses startIndex and count. Absent values stay unset and
// the engine applies the tenant defaults.
func pageRequest(c echo.Context) (engine.PageRequest, error) {
	req := engine.PageRequest{StartIndex: 0, Count: -1}
	if raw := c.QueryParam("startIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, &schema.ValidationError{Field: "startIndex", Index: -1, Detail: "must be an integer", Provided: raw}
		}
		req.StartIndex = n
	}
	if raw := c.QueryParam("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, &schema.ValidationError{Field: "count", Index: -1, Detail: "must be an integer", Provided: raw}
		}
		req.Count = n
	}
	return req, nil
}

// writeError maps domain errors onto SCIM error responses. Anything not
// in the taxonomy becomes an opaque 500; the detail goes to the log, not
// the client.
func (h *Handler) writeError(c echo.Context, err error) error {
	var (
		authErr      *AuthError
		resErr       *tenant.ResolutionError
		valErr       *schema.ValidationError
		canonErr     *schema.CanonicalValueError
		compileErr   *filter.CompileError
		notFound     *engine.NotFoundError
		conflict     *engine.ConflictError
		kindDisabled *engine.KindDisabledError
		rateErr      *ratelimit.Error
	)

	switch {
	case errors.As(err, &authErr):
		return h.scimError(c, http.StatusUnauthorized, "", authErr.Reason)
	case errors.As(err, &resErr):
		return h.scimError(c, http.StatusBadRequest, "invalidValue", resErr.Error())
	case errors.As(err, &valErr):
		return h.scimError(c, http.StatusBadRequest, "invalidValue", valErr.Error())
	case errors.As(err, &canonErr):
		return h.scimError(c, http.StatusBadRequest, "invalidValue", canonErr.Error())
	case errors.As(err, &compileErr):
		return h.scimError(c, http.StatusBadRequest, "invalidFilter", compileErr.Error())
	case errors.As(err, &notFound):
		return h.scimError(c, http.StatusNotFound, "", notFound.Error())
	case errors.As(err, &conflict):
		return h.scimError(c, http.StatusConflict, "uniqueness", conflict.Error())
	case errors.As(err, &kindDisabled):
		return h.scimError(c, http.StatusForbidden, "", kindDisabled.Error())
	case errors.As(err, &rateErr):
		retry := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
		return h.scimError(c, http.StatusTooManyRequests, "", "rate limit exceeded")
	default:
		logger.Log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		return h.scimError(c, http.StatusInternalServerError, "", "internal server error")
	}
}

func (h *Handler) scimError(c echo.Context, status int, scimType, detail string) error {
	body := map[string]any{
		"schemas": []string{errorURN},
		"status":  strconv.Itoa(status),
		"detail":  detail,
	}
	if scimType != "" {
		body["scimType"] = scimType
	}
	return c.JSON(status, body)
}
