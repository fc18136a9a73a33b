package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/domain/users"
	"hms-service/internal/export"
	"hms-service/internal/http/middleware"
	"hms-service/internal/repository"
	"hms-service/internal/rules"
	"hms-service/internal/search"
	"hms-service/internal/service"
	"hms-service/internal/spatial"
	"hms-service/internal/storage"
)

// UserSource resolves a username to its stored account and profiles.
type UserSource interface {
	LoadUser(ctx context.Context, username string) (*users.User, error)
}

type Handler struct {
	visibility *service.VisibilityService
	indexing   *service.IndexingService
	engine     *spatial.Engine
	exporter   *export.Exporter
	resources  *repository.ResourceRepository
	profiles   UserSource
	photos     *storage.PhotoStore
	log        zerolog.Logger
}

func NewHandler(
	visibility *service.VisibilityService,
	indexing *service.IndexingService,
	engine *spatial.Engine,
	exporter *export.Exporter,
	resources *repository.ResourceRepository,
	profiles UserSource,
	photos *storage.PhotoStore,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		visibility: visibility,
		indexing:   indexing,
		engine:     engine,
		exporter:   exporter,
		resources:  resources,
		profiles:   profiles,
		photos:     photos,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, identify gin.HandlerFunc) {
	api := r.Group("/api/v1")
	api.Use(identify)
	{
		api.GET("/resources/search", h.searchResources)
		api.GET("/resources/:id", h.getResource)
		api.GET("/export/resources", h.exportResources)
	}

	authed := r.Group("/api/v1")
	authed.Use(identify, middleware.RequireAuth())
	{
		authed.POST("/reports/:id/photos", h.uploadReportPhoto)
	}

	admin := r.Group("/api/v1")
	admin.Use(identify, middleware.RequireAuth(), h.requireSuperuser)
	{
		admin.POST("/areas/:id/join", h.joinArea)
		admin.POST("/resources/:id/spatial-join", h.spatialJoinResource)
		admin.POST("/resources/:id/reindex", h.reindexResource)
	}
}

// requireSuperuser gates the admin routes. A valid token is not
// enough: joins and reindexes rewrite derived attributes for everyone,
// so only superusers may trigger them.
func (h *Handler) requireSuperuser(c *gin.Context) {
	role, err := h.roleOf(c)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to resolve caller role")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	if role.Kind != rules.RoleSuperuser {
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse("superuser access required"))
		return
	}
	c.Next()
}

// roleOf resolves the caller's role from the store once per request.
func (h *Handler) roleOf(c *gin.Context) (rules.Role, error) {
	username := middleware.Username(c)
	if username == "" {
		return rules.Role{Kind: rules.RoleAnonymous}, nil
	}
	u, err := h.profiles.LoadUser(c.Request.Context(), username)
	if err != nil {
		return rules.Role{}, err
	}
	if u == nil {
		// Token names an account the store no longer has.
		return rules.Role{Kind: rules.RoleAnonymous}, nil
	}
	return rules.RoleOf(u), nil
}

func (h *Handler) searchResources(c *gin.Context) {
	role, err := h.roleOf(c)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to resolve caller role")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	scope, ok := parseTypeScope(c.Query("types"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("unknown resource type in types parameter"))
		return
	}

	var base *search.Bool
	if term := strings.TrimSpace(c.Query("name")); term != "" {
		base = &search.Bool{Must: []search.Clause{NameContains{Term: term}}}
	}

	ids, err := h.visibility.Search(c.Request.Context(), role, scope, base)
	if err != nil {
		h.log.Error().Err(err).Msg("search failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	resources, err := h.resources.GetResources(c.Request.Context(), ids)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load search results")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"total":     len(resources),
		"resources": resources,
	}))
}

func (h *Handler) getResource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid resource id"))
		return
	}

	role, err := h.roleOf(c)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to resolve caller role")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	res, err := h.resources.GetResource(c.Request.Context(), id)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, errorResponse("not found"))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("resource_id", id.String()).Msg("failed to load resource")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	visible, err := h.isVisible(c, role, res)
	if err != nil {
		h.log.Error().Err(err).Str("resource_id", id.String()).Msg("visibility check failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	if !visible {
		// Hidden records look absent, not forbidden.
		c.JSON(http.StatusNotFound, errorResponse("not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse(res))
}

func (h *Handler) isVisible(c *gin.Context, role rules.Role, res *heritage.Resource) (bool, error) {
	ids, all, err := h.visibility.ResolveIDs(c.Request.Context(), role, res.Type)
	if err != nil {
		return false, err
	}
	if all {
		return true, nil
	}
	for _, id := range ids {
		if id == res.ID {
			return true, nil
		}
	}
	return false, nil
}

func (h *Handler) exportResources(c *gin.Context) {
	role, err := h.roleOf(c)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to resolve caller role")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	scope, ok := parseTypeScope(c.Query("types"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("unknown resource type in types parameter"))
		return
	}

	data, err := h.exporter.VisibleResources(c.Request.Context(), role, scope)
	if err != nil {
		h.log.Error().Err(err).Msg("export failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="resources.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) uploadReportPhoto(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid report id"))
		return
	}

	res, err := h.resources.GetResource(c.Request.Context(), id)
	if err == gorm.ErrRecordNotFound || (err == nil && res.Type != heritage.ScoutReport) {
		c.JSON(http.StatusNotFound, errorResponse("not found"))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("report_id", id.String()).Msg("failed to load report")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	role, err := h.roleOf(c)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to resolve caller role")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	visible, err := h.isVisible(c, role, res)
	if err != nil {
		h.log.Error().Err(err).Str("report_id", id.String()).Msg("visibility check failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	if !visible {
		c.JSON(http.StatusNotFound, errorResponse("not found"))
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("photo file is required"))
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("cannot read photo file"))
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	url, err := h.photos.UploadReportPhoto(c.Request.Context(), id, file.Filename, src, file.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, errorResponse("photo storage is not configured"))
			return
		}
		h.log.Error().Err(err).Str("report_id", id.String()).Msg("photo upload failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	photoID, err := h.resources.AddReportPhoto(c.Request.Context(), id, url, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("report_id", id.String()).Msg("failed to record photo")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "ok",
		"photo_id": photoID,
		"url":      url,
	})
}

func (h *Handler) joinArea(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid area id"))
		return
	}

	h.log.Info().Str("area_id", id.String()).Msg("joining area to intersecting resources")

	updated, err := h.engine.JoinAreaToResources(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("area_id", id.String()).Msg("area join failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"updated": updated,
	})
}

func (h *Handler) spatialJoinResource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid resource id"))
		return
	}

	if err := h.engine.UpdateResource(c.Request.Context(), id); err != nil {
		if errors.Is(err, spatial.ErrBadGeometry) {
			c.JSON(http.StatusUnprocessableEntity, errorResponse("resource geometry is invalid"))
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("not found"))
			return
		}
		h.log.Error().Err(err).Str("resource_id", id.String()).Msg("spatial join failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	if err := h.indexing.Reindex(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Str("resource_id", id.String()).Msg("reindex after spatial join failed")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) reindexResource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid resource id"))
		return
	}

	if err := h.indexing.Reindex(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Str("resource_id", id.String()).Msg("reindex failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseTypeScope(raw string) ([]heritage.ResourceType, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	known := make(map[heritage.ResourceType]bool, len(heritage.AllResourceTypes))
	for _, rt := range heritage.AllResourceTypes {
		known[rt] = true
	}
	var scope []heritage.ResourceType
	for _, part := range strings.Split(raw, ",") {
		rt := heritage.ResourceType(strings.TrimSpace(part))
		if !known[rt] {
			return nil, false
		}
		scope = append(scope, rt)
	}
	return scope, true
}

// NameContains is a caller-criteria clause used by the search
// endpoint's name filter. Declared here because it is request plumbing
// rather than part of the access-rule query surface.
type NameContains struct {
	Term string `json:"name_contains"`
}

func (n NameContains) Matches(doc *heritage.Document) bool {
	return strings.Contains(strings.ToLower(doc.Name), strings.ToLower(n.Term))
}

func errorResponse(msg string) gin.H {
	return gin.H{"status": "error", "error": msg}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"status": "ok", "data": data}
}
