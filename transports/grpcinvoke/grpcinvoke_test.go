package grpcinvoke

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glimte/interim-go/interceptors"
	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/invocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const addMethod = "/calculator.v1.CalculatorService/Add"

type addRequest struct {
	A, B int
}

type addResponse struct {
	Sum int
}

type calculatorServer struct {
	calls int
}

func (s *calculatorServer) handler(ctx context.Context, req any) (any, error) {
	s.calls++
	r := req.(*addRequest)
	return &addResponse{Sum: r.A + r.B}, nil
}

func serve(t *testing.T, ctx context.Context, interceptor grpc.UnaryServerInterceptor, srv *calculatorServer, req any) (any, error) {
	t.Helper()
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: addMethod}
	return interceptor(ctx, req, info, srv.handler)
}

func TestUnaryServerInterceptor(t *testing.T) {
	t.Run("empty chain calls the handler", func(t *testing.T) {
		srv := &calculatorServer{}
		resp, err := serve(t, context.Background(), UnaryServerInterceptor(nil), srv, &addRequest{A: 2, B: 3})

		require.NoError(t, err)
		assert.Equal(t, &addResponse{Sum: 5}, resp)
		assert.Equal(t, 1, srv.calls)
	})

	t.Run("interceptions see the server, method and request", func(t *testing.T) {
		srv := &calculatorServer{}
		var seen string
		probe := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			seen = fmt.Sprintf("%T %s %d", ic.Target(), ic.Method().Name(), len(ic.Parameters()))
			return ic.Proceed()
		})

		_, err := serve(t, context.Background(), UnaryServerInterceptor([]invocation.Interception{probe}), srv, &addRequest{})

		require.NoError(t, err)
		assert.Equal(t, "*grpcinvoke.calculatorServer "+addMethod+" 1", seen)
	})

	t.Run("rewritten requests reach the handler", func(t *testing.T) {
		srv := &calculatorServer{}
		scale := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			r := ic.Parameters()[0].(*addRequest)
			if err := ic.SetParameters([]any{&addRequest{A: r.A * 10, B: r.B * 10}}); err != nil {
				return nil, err
			}
			return ic.Proceed()
		})

		resp, err := serve(t, context.Background(), UnaryServerInterceptor([]invocation.Interception{scale}), srv, &addRequest{A: 2, B: 3})

		require.NoError(t, err)
		assert.Equal(t, &addResponse{Sum: 50}, resp)
	})

	t.Run("requests of another type are rejected", func(t *testing.T) {
		srv := &calculatorServer{}
		swap := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			if err := ic.SetParameters([]any{"not a request"}); err != nil {
				return nil, err
			}
			return ic.Proceed()
		})

		_, err := serve(t, context.Background(), UnaryServerInterceptor([]invocation.Interception{swap}), srv, &addRequest{})

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Zero(t, srv.calls)
	})

	t.Run("short-circuits skip the handler", func(t *testing.T) {
		srv := &calculatorServer{}
		cached := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			return &addResponse{Sum: 99}, nil
		})

		resp, err := serve(t, context.Background(), UnaryServerInterceptor([]invocation.Interception{cached}), srv, &addRequest{})

		require.NoError(t, err)
		assert.Equal(t, &addResponse{Sum: 99}, resp)
		assert.Zero(t, srv.calls)
	})

	t.Run("denied methods map to PermissionDenied", func(t *testing.T) {
		srv := &calculatorServer{}
		deny := interceptors.NewDenyInterceptor(interceptors.DenyRule{Name: "adds", Methods: []string{addMethod}})

		_, err := serve(t, context.Background(), UnaryServerInterceptor([]invocation.Interception{deny}), srv, &addRequest{})

		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Zero(t, srv.calls)
	})

	t.Run("status mapping can be disabled", func(t *testing.T) {
		srv := &calculatorServer{}
		deny := interceptors.NewDenyInterceptor(interceptors.DenyRule{Name: "adds", Methods: []string{addMethod}})

		_, err := serve(t, context.Background(),
			UnaryServerInterceptor([]invocation.Interception{deny}, WithoutStatusMapping()), srv, &addRequest{})

		assert.ErrorIs(t, err, interceptors.ErrDenied)
	})

	t.Run("handler status errors pass through", func(t *testing.T) {
		interceptor := UnaryServerInterceptor(nil)
		info := &grpc.UnaryServerInfo{FullMethod: addMethod}
		notFound := status.Error(codes.NotFound, "no such thing")

		_, err := interceptor(context.Background(), &addRequest{}, info, func(context.Context, any) (any, error) {
			return nil, notFound
		})

		assert.Equal(t, notFound, err)
	})

	t.Run("copies selected metadata into attributes", func(t *testing.T) {
		srv := &calculatorServer{}
		var tenant, ignored any
		probe := invocation.InterceptionFunc(func(ic invocation.InvocationContext) (any, error) {
			tenant, _ = ic.ContextData().Get("x-tenant")
			ignored, _ = ic.ContextData().Get("x-other")
			return ic.Proceed()
		})
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-tenant", "acme", "x-other", "value"))

		_, err := serve(t, ctx, UnaryServerInterceptor([]invocation.Interception{probe}, WithMetadataKeys("x-tenant")), srv, &addRequest{})

		require.NoError(t, err)
		assert.Equal(t, "acme", tenant)
		assert.Nil(t, ignored)
	})

	t.Run("nil requests and servers are tolerated", func(t *testing.T) {
		interceptor := UnaryServerInterceptor(nil)
		info := &grpc.UnaryServerInfo{FullMethod: addMethod}

		resp, err := interceptor(context.Background(), nil, info, func(_ context.Context, req any) (any, error) {
			return req, nil
		})

		require.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("handler panics propagate", func(t *testing.T) {
		interceptor := UnaryServerInterceptor(nil)
		info := &grpc.UnaryServerInfo{FullMethod: addMethod}

		assert.Panics(t, func() {
			_, _ = interceptor(context.Background(), &addRequest{}, info, func(context.Context, any) (any, error) {
				var r *addRequest
				return r.A, nil
			})
		})
	})
}

func TestToStatus(t *testing.T) {
	open := reliability.NewCircuitBreaker(reliability.WithFailureThreshold(1), reliability.WithTimeout(time.Hour))
	_ = open.Execute(context.Background(), func() error { return errors.New("fail") })
	rejection := open.Execute(context.Background(), func() error { return nil })
	require.True(t, reliability.IsRejection(rejection))

	plain := errors.New("plain")

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"denied", &interceptors.DeniedError{Rule: "r", Method: "m"}, codes.PermissionDenied},
		{"parameter mismatch", &invocation.ParameterMismatchError{Method: "m", Index: 0}, codes.InvalidArgument},
		{"circuit open", rejection, codes.Unavailable},
		{"existing status", status.Error(codes.Aborted, "aborted"), codes.Aborted},
		{"unknown", plain, codes.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}

	assert.NoError(t, ToStatus(nil))
	assert.Same(t, plain, ToStatus(plain))
}
