package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindGateway, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.HTTPStatus())
	}
}

func TestServiceErrorUnwrapping(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("creating intent: %w", GatewayError("Failed to create payment order", cause))

	se, ok := AsServiceError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeGatewayError, se.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to create payment order: dial tcp: timeout", se.Error())

	assert.True(t, IsKind(err, KindGateway))
	assert.False(t, IsKind(errors.New("plain"), KindGateway))
	assert.Equal(t, "Order not found", NotFoundError("Order").Message)
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, Limit: 20}},
		{"keeps valid values", PageRequest{Page: 3, Limit: 5}, PageRequest{Page: 3, Limit: 5}},
		{"caps limit", PageRequest{Page: 1, Limit: 500}, PageRequest{Page: 1, Limit: 100}},
		{"negative page", PageRequest{Page: -2, Limit: 10}, PageRequest{Page: 1, Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(20))
		})
	}

	assert.Equal(t, 10, PageRequest{Page: 3, Limit: 5}.Offset())
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 21, ItemsPerPage: 10},
		newPagination(PageRequest{Page: 2, Limit: 10}, 21))
}
