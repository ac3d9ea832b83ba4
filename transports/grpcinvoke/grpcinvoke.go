// Package grpcinvoke runs gRPC unary calls through an interception chain.
//
// Each call becomes one invocation: the target is the registered service
// implementation, the method name is the full gRPC method and the only
// parameter is the request message. Interceptions may rewrite the request
// with SetParameters as long as the replacement has the same type.
package grpcinvoke

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"slices"

	"github.com/glimte/interim-go/interceptors"
	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/invocation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type options struct {
	logger       *slog.Logger
	metadataKeys []string
	mapErrors    bool
}

// Option configures the unary server interceptor
type Option func(*options)

// WithLogger sets the logger handed to each invocation
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetadataKeys copies the first value of each incoming metadata key into
// the invocation attributes before the chain runs.
func WithMetadataKeys(keys ...string) Option {
	return func(o *options) {
		o.metadataKeys = append(o.metadataKeys, keys...)
	}
}

// WithoutStatusMapping returns chain errors unchanged instead of converting
// known failures to gRPC status errors.
func WithoutStatusMapping() Option {
	return func(o *options) {
		o.mapErrors = false
	}
}

// UnaryServerInterceptor adapts interceptions to grpc.UnaryServerInterceptor
func UnaryServerInterceptor(interceptions []invocation.Interception, opts ...Option) grpc.UnaryServerInterceptor {
	o := options{logger: slog.Default(), mapErrors: true}
	for _, opt := range opts {
		opt(&o)
	}

	chain := slices.Clone(interceptions)
	if len(o.metadataKeys) > 0 {
		chain = slices.Insert(chain, 0, invocation.Interception(metadataInterception(o.metadataKeys)))
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		method := unaryMethod(info.FullMethod, req, handler)

		var target any = info
		if info.Server != nil {
			target = info.Server
		}

		stack := invocation.NewInterceptorStack(target, method, chain, invocation.WithLogger(o.logger))
		resp, err := stack.Invoke(ctx, req)
		if err != nil && o.mapErrors {
			return resp, ToStatus(err)
		}
		return resp, err
	}
}

func unaryMethod(fullMethod string, req any, handler grpc.UnaryHandler) *invocation.Method {
	reqType := reflect.TypeFor[any]()
	if req != nil {
		reqType = reflect.TypeOf(req)
	}

	return invocation.NewMethod(fullMethod, []reflect.Type{reqType}, func(ctx context.Context, _ any, args []any) (any, error) {
		return handler(ctx, args[0])
	})
}

func metadataInterception(keys []string) *invocation.NamedInterception {
	return invocation.NewNamedInterception("MetadataInterceptor", func(ic invocation.InvocationContext) (any, error) {
		if md, ok := metadata.FromIncomingContext(ic.Context()); ok {
			for _, key := range keys {
				if values := md.Get(key); len(values) > 0 {
					ic.ContextData().Set(key, values[0])
				}
			}
		}
		return ic.Proceed()
	})
}

// ToStatus converts known invocation failures to gRPC status errors. Errors
// that already carry a status, and unknown errors, are returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, interceptors.ErrDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, invocation.ErrParameterMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case reliability.IsRejection(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return err
	}
}
