package nats

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/kdvector"
)

const HeaderRequestID = "request_id"

func code(err error) string {
	switch {
	case errors.Is(err, kdvector.ErrDimensionMismatch),
		errors.Is(err, kdvector.ErrEmptyDocument),
		errors.Is(err, kdvector.ErrEmptyQuery):
		return "400"

	case errors.Is(err, kdvector.ErrPointNotFound):
		return "404"

	default:
		return "417"
	}
}

func requestContext(r micro.Request) context.Context {
	ctx := context.Background()

	if requestID := r.Headers().Get(HeaderRequestID); requestID != "" {
		ctx = context.WithValue(ctx, kdvector.RequestID, requestID)
	}

	return ctx
}

func UploadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req kdvector.UploadRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func InsertHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req kdvector.InsertRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func QueryHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req kdvector.QueryRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func QueryVectorHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req kdvector.QueryVectorRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func MetadataHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		id, err := strconv.Atoi(string(r.Data()))
		if err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := requestContext(r)
		resp, err := endpoint(ctx, id)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func ClearHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := requestContext(r)
		_, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func StatsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := requestContext(r)
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.RespondJSON(&resp)
	}
}

func SaveHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := requestContext(r)
		_, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func LoadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := requestContext(r)
		_, err := endpoint(ctx, nil)
		if err != nil {
			r.Error(code(err), err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}
