package kdvector

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Upload      endpoint.Endpoint
	Insert      endpoint.Endpoint
	Query       endpoint.Endpoint
	QueryVector endpoint.Endpoint
	Metadata    endpoint.Endpoint
	Clear       endpoint.Endpoint
	Stats       endpoint.Endpoint
	Save        endpoint.Endpoint
	Load        endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Upload:      UploadEndpoint(svc),
		Insert:      InsertEndpoint(svc),
		Query:       QueryEndpoint(svc),
		QueryVector: QueryVectorEndpoint(svc),
		Metadata:    MetadataEndpoint(svc),
		Clear:       ClearEndpoint(svc),
		Stats:       StatsEndpoint(svc),
		Save:        SaveEndpoint(svc),
		Load:        LoadEndpoint(svc),
	}
}

type UploadRequest struct {
	Resume string `json:"resume"`
}

func UploadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(UploadRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Upload(ctx, req.Resume)
	}
}

type InsertRequest struct {
	Vector   []float32 `json:"vector"`
	Metadata string    `json:"metadata"`
}

type InsertResponse struct {
	ID int `json:"id"`
}

func InsertEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(InsertRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		id, err := svc.Insert(ctx, req.Vector, req.Metadata)
		if err != nil {
			return nil, err
		}

		return &InsertResponse{id}, nil
	}
}

type QueryRequest struct {
	Query string `json:"query" form:"query"`
	K     int    `json:"k,omitempty" form:"k"`
}

func QueryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Query(ctx, req.Query, req.K)
	}
}

type QueryVectorRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k,omitempty"`
}

func QueryVectorEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryVectorRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.QueryVector(ctx, req.Vector, req.K)
	}
}

type MetadataResponse struct {
	ID       int    `json:"id"`
	Metadata string `json:"metadata"`
}

func MetadataEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		id, ok := request.(int)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		meta, err := svc.Metadata(ctx, id)
		if err != nil {
			return nil, err
		}

		return &MetadataResponse{id, meta}, nil
	}
}

func ClearEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		err := svc.Clear(ctx)
		return nil, err
	}
}

func StatsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Stats(ctx)
	}
}

func SaveEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		err := svc.Save(ctx)
		return nil, err
	}
}

func LoadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		err := svc.Load(ctx)
		return nil, err
	}
}
