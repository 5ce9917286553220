package utils_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blubywaff/ftag/internal/utils"
)

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var response utils.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return response
}

func TestJSON(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		data        interface{}
		wantSuccess bool
	}{
		{"Success response", http.StatusOK, map[string]string{"message": "ok"}, true},
		{"Created response", http.StatusCreated, map[string]string{"id": "1"}, true},
		{"Error status with data", http.StatusBadRequest, map[string]string{"reason": "bad"}, false},
		{"Nil data", http.StatusOK, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			utils.JSON(rr, tt.statusCode, tt.data)

			assert.Equal(t, tt.statusCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			response := decodeResponse(t, rr)
			assert.Equal(t, tt.wantSuccess, response.Success)
			assert.Nil(t, response.Error)
		})
	}
}

func TestPositioned(t *testing.T) {
	rr := httptest.NewRecorder()

	utils.Positioned(rr, map[string]string{"Id": "abc"}, 2, 5)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"Id":"abc"},"meta":{"number":2,"total":5}}`, rr.Body.String())
}

func TestError(t *testing.T) {
	rr := httptest.NewRecorder()

	utils.Error(rr, http.StatusBadRequest, "bad_request", "Bad", map[string]string{"field": "wrong"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	response := decodeResponse(t, rr)
	assert.False(t, response.Success)
	require.NotNil(t, response.Error)
	assert.Equal(t, "bad_request", response.Error.Code)
	assert.Equal(t, "wrong", response.Error.Details["field"])
}

func TestErrorFromAppError(t *testing.T) {
	tests := []struct {
		name        string
		err         *utils.AppError
		wantStatus  int
		wantCode    string
		wantDetails map[string]string
	}{
		{
			name:       "Not found",
			err:        utils.NewNotFoundError("Resource", "x"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:        "Validation with field",
			err:         utils.NewValidationError("defaultTagView", "Must be one of: hide, show, edit"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "validation_error",
			wantDetails: map[string]string{"defaultTagView": "Must be one of: hide, show, edit"},
		},
		{
			name:        "Rejected tags",
			err:         utils.NewInvalidTagsError("tags", []string{"ab", "c9c"}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "validation_error",
			wantDetails: map[string]string{"tags": "Some tags were invalid", "rejected": "ab,c9c"},
		},
		{
			name:       "Rate limited",
			err:        utils.NewTooManyRequestsError(),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "too_many_requests",
		},
		{
			name:       "Internal",
			err:        utils.NewInternalServerError(errors.New("secret detail")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			utils.ErrorFromAppError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			response := decodeResponse(t, rr)
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, tt.wantDetails, response.Error.Details)
			assert.NotContains(t, rr.Body.String(), "secret detail")
		})
	}
}

func TestConvenienceResponses(t *testing.T) {
	tests := []struct {
		name       string
		send       func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{"BadRequest", func(w http.ResponseWriter) { utils.BadRequest(w, "bad", nil) }, http.StatusBadRequest, "bad_request"},
		{"Unauthorized", func(w http.ResponseWriter) { utils.Unauthorized(w, "") }, http.StatusUnauthorized, "unauthorized"},
		{"NotFound", func(w http.ResponseWriter) { utils.NotFound(w, "") }, http.StatusNotFound, "not_found"},
		{"MethodNotAllowed", utils.MethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"TooManyRequests", utils.TooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
		{"InternalServerError", func(w http.ResponseWriter) { utils.InternalServerError(w, errors.New("x")) }, http.StatusInternalServerError, "internal_error"},
		{"ValidationError", func(w http.ResponseWriter) { utils.ValidationError(w, map[string]string{"a": "b"}) }, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.send(rr)

			assert.Equal(t, tt.wantStatus, rr.Code)
			response := decodeResponse(t, rr)
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.wantCode, response.Error.Code)
		})
	}
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	utils.NoContent(rr)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestSendJSON_MarshalFailure(t *testing.T) {
	rr := httptest.NewRecorder()

	utils.SendJSON(rr, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}
