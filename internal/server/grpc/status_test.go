package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/teamspace/internal/common"
	"github.com/dmitrijs2005/teamspace/internal/server/records"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("task x: %w", common.ErrorNotFound), codes.NotFound},
		{fmt.Errorf("%w: project p", records.ErrParentNotFound), codes.FailedPrecondition},
		{fmt.Errorf("%w: name is required", common.ErrorValidation), codes.InvalidArgument},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{status.Error(codes.Unavailable, "busy"), codes.Unavailable},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}

	assert.Equal(t, "internal error", status.Convert(toStatus(errors.New("secret detail"))).Message())
}
