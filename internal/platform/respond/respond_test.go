// Copyright (c) 2026 ViewTube. All rights reserved.

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/respond"
)

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

/*
TestOK verifies the success envelope shape: status, data, message, success.
*/
func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"id": "u1"}, "Fetched")

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(200), body["status"])
	assert.Equal(t, "Fetched", body["message"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"id": "u1"}, body["data"])
}

/*
TestCreated verifies the 201 variant of the success envelope.
*/
func TestCreated(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.Created(recorder, map[string]string{"id": "u1"}, "User registered Successfully")

	assert.Equal(t, http.StatusCreated, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, float64(201), body["status"])
	assert.Equal(t, true, body["success"])
}

/*
TestError_AppError verifies that AppErrors map to their HTTP status and expose
only the client-safe message.
*/
func TestError_AppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not_found", apperr.NotFound("User"), http.StatusNotFound, "User not found"},
		{"unauthorized", apperr.Unauthorized("Invalid user credentials"), http.StatusUnauthorized, "Invalid user credentials"},
		{"conflict", apperr.Conflict("User with email already exists"), http.StatusConflict, "User with email already exists"},
		{"validation", apperr.ValidationError("Validation failed"), http.StatusBadRequest, "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)

			respond.Error(recorder, request, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			body := decodeBody(t, recorder)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

/*
TestError_MasksUnknownErrors verifies that raw internal errors never leak their
text to the client.
*/
func TestError_MasksUnknownErrors(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	respond.Error(recorder, request, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.NotContains(t, recorder.Body.String(), "10.0.0.3")
}

/*
TestError_ValidationDetails verifies that field errors surface in the errors array.
*/
func TestError_ValidationDetails(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/", nil)

	respond.Error(recorder, request, apperr.ValidationError("Validation failed",
		apperr.FieldError{Field: "email", Message: "This field is required"},
	))

	body := decodeBody(t, recorder)
	fieldErrors, ok := body["errors"].([]any)
	require.True(t, ok)
	require.Len(t, fieldErrors, 1)
	first := fieldErrors[0].(map[string]any)
	assert.Equal(t, "email", first["field"])
}

/*
TestHandle_Success verifies that a nil-returning handler writes nothing extra.
*/
func TestHandle_Success(t *testing.T) {
	handlerFunc := respond.Handle(func(writer http.ResponseWriter, request *http.Request) error {
		respond.OK(writer, nil, "done")
		return nil
	})

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHandle_Error verifies that a returned error is funneled through the
standard error envelope.
*/
func TestHandle_Error(t *testing.T) {
	handlerFunc := respond.Handle(func(writer http.ResponseWriter, request *http.Request) error {
		return apperr.Unauthorized("Authentication required")
	})

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "Authentication required", body["message"])
	assert.Equal(t, false, body["success"])
}

/*
TestHandle_Panic verifies that a panicking handler is converted into a masked
500 response instead of crashing the server.
*/
func TestHandle_Panic(t *testing.T) {
	handlerFunc := respond.Handle(func(writer http.ResponseWriter, request *http.Request) error {
		panic("nil map write in handler")
	})

	recorder := httptest.NewRecorder()
	handlerFunc(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.NotContains(t, recorder.Body.String(), "nil map write")
}
