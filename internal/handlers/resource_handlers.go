package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/utils"
)

// ResourceHandler handles resource and file routes
type ResourceHandler struct {
	resourceService ResourceServiceInterface
	maxUploadSize   int64
}

// NewResourceHandler creates a new ResourceHandler.
// maxUploadSize bounds the multipart request body; zero or less means unlimited.
func NewResourceHandler(resourceService ResourceServiceInterface, maxUploadSize int64) *ResourceHandler {
	return &ResourceHandler{
		resourceService: resourceService,
		maxUploadSize:   maxUploadSize,
	}
}

// parseTags reads a comma separated tag list, rejecting the request if any
// entry is not a valid tag.
func parseTags(field, raw string) (models.TagSet, error) {
	var ts models.TagSet
	if rejected := ts.FillFromString(raw); len(rejected) > 0 {
		return models.TagSet{}, utils.NewInvalidTagsError(field, rejected)
	}
	return ts, nil
}

// UploadResource stores a multipart upload with its tags.
// The form carries the file under "uploadfile" and a comma separated list under "tags".
func (h *ResourceHandler) UploadResource(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		// Leave room for the multipart framing and the tags field
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+constants.MaxRequestBodySize)
	}

	if err := r.ParseMultipartForm(constants.MultipartMemory); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			utils.Error(w, http.StatusRequestEntityTooLarge, constants.CodeBadRequest, constants.MsgRequestBodyTooLarge, nil)
			return
		}
		utils.BadRequest(w, "Request must be a multipart form", nil)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("Failed to remove multipart temp files")
		}
	}()

	tags, err := parseTags(constants.FormFieldTags, r.FormValue(constants.FormFieldTags))
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	file, _, err := r.FormFile(constants.FormFieldUploadFile)
	if err != nil {
		utils.BadRequest(w, "Missing upload file", map[string]string{
			constants.FormFieldUploadFile: "required",
		})
		return
	}
	defer file.Close()

	resource, err := h.resourceService.AddFile(r.Context(), file, tags)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusCreated, resource)
}

// GetResource returns a resource descriptor
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, constants.ParamID)

	resource, err := h.resourceService.GetResource(r.Context(), id)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, resource)
}

// ChangeTags attaches and detaches tags on a resource
func (h *ResourceHandler) ChangeTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, constants.ParamID)

	var req models.ChangeTagsRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	var add, del models.TagSet
	add.FillFromSlice(req.AddTags)
	del.FillFromSlice(req.DelTags)
	if add.Len() == 0 && del.Len() == 0 {
		utils.BadRequest(w, constants.MsgEmptyTagChange, nil)
		return
	}

	resource, err := h.resourceService.ChangeTags(r.Context(), id, add, del)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, resource)
}

// QueryResources returns the resource at the requested position of the
// newest-first list matching the include and exclude tags.
func (h *ResourceHandler) QueryResources(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	include, err := parseTags(constants.QueryParamIncludeTags, query.Get(constants.QueryParamIncludeTags))
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}
	exclude, err := parseTags(constants.QueryParamExcludeTags, query.Get(constants.QueryParamExcludeTags))
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	number := 1
	if raw := query.Get(constants.QueryParamNumber); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil {
			utils.BadRequest(w, "Invalid number", map[string]string{
				constants.QueryParamNumber: "must be an integer",
			})
			return
		}
	}

	clientID := auth.ClientIDFromContext(r.Context())
	result, err := h.resourceService.Query(r.Context(), clientID, include, exclude, number)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.Positioned(w, result.Resource, result.Number, result.Total)
}

// ServeFile writes the raw contents of a resource.
// Conditional and range requests are honored through the ETag.
func (h *ResourceHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, constants.ParamID)

	file, err := h.resourceService.GetFile(r.Context(), id)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	mimetype := file.Resource.Mimetype
	if mimetype == "" {
		mimetype = constants.ContentTypeOctetStream
	}

	w.Header().Set(constants.HeaderContentType, mimetype)
	w.Header().Set(constants.HeaderETag, file.ETag)
	w.Header().Set(constants.HeaderCacheControl, constants.CacheControlPrivate)

	http.ServeContent(w, r, "", file.Resource.Created(), bytes.NewReader(file.Data))
}
